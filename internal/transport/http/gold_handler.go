package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	apierrors "retailpulse/internal/errors"
	"retailpulse/internal/storage"
	"retailpulse/internal/table"
)

const (
	// DefaultRowLimit is the number of rows returned without a limit parameter
	DefaultRowLimit = 1000
	// MaxRowLimit caps the limit parameter
	MaxRowLimit = 100000
)

// GoldTable is the JSON form of a gold table
type GoldTable struct {
	Name    string           `json:"name"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
	Total   int              `json:"total"`
}

// GoldHandler serves the gold layer
type GoldHandler struct {
	reader       GoldReader
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewGoldHandler creates a gold handler
func NewGoldHandler(reader GoldReader, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *GoldHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoldHandler{
		reader:       reader,
		logger:       logger.With(slog.String("component", "gold_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the gold routes
func (h *GoldHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListTables)
	r.Get("/{name}", h.GetTable)
	return r
}

// ListTables handles GET /api/gold
func (h *GoldHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	names, err := h.reader.List(r.Context(), storage.Gold)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   names,
		"count":  len(names),
	})
}

// GetTable handles GET /api/gold/{name}?limit=N
func (h *GoldHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewAppValidationError(err.Error()).WithContext("param", "limit"))
		return
	}

	t, err := h.reader.ReadLatest(r.Context(), storage.Gold, name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "serving gold table",
		slog.String("table", name),
		slog.Int("rows", t.Len()),
		slog.Int("limit", limit),
		slog.String("request_id", middleware.GetReqID(r.Context())))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   toGoldTable(name, t, limit),
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultRowLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxRowLimit {
		return 0, &limitError{raw: raw}
	}
	return n, nil
}

type limitError struct {
	raw string
}

func (e *limitError) Error() string {
	return "limit must be an integer between 1 and " + strconv.Itoa(MaxRowLimit) + ", got " + strconv.Quote(e.raw)
}

func toGoldTable(name string, t *table.Table, limit int) GoldTable {
	head := t.Head(limit)
	columns := head.Columns()
	rows := make([]map[string]any, head.Len())
	for i := range rows {
		row := make(map[string]any, len(columns))
		for _, c := range columns {
			row[c] = jsonCell(head.Value(c, i))
		}
		rows[i] = row
	}
	return GoldTable{
		Name:    name,
		Columns: columns,
		Rows:    rows,
		Count:   head.Len(),
		Total:   t.Len(),
	}
}

// jsonCell renders decimals as numbers and timestamps as RFC 3339.
func jsonCell(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return v
	}
}
