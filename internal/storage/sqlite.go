package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/internal/errors"
	"retailpulse/internal/table"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS layer_catalog (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	layer TEXT NOT NULL,
	name TEXT NOT NULL,
	table_name TEXT NOT NULL,
	columns TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_layer_catalog_lookup ON layer_catalog(layer, name, id);
`

// SQLiteStore keeps each table version as a relational table named
// <layer>_<name>_<timestamp>[_<seq>], indexed by the layer_catalog table.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	now    Clock
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.NewConfigError("sqlite path is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, errors.NewStorageError("failed to create database directory", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.NewStorageError("failed to open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.NewStorageError("failed to ping database", err)
	}
	if _, err := db.Exec(catalogSchema); err != nil {
		db.Close()
		return nil, errors.NewStorageError("failed to create catalog", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
		logger: logger.With(slog.String("component", "sqlite_store")),
	}, nil
}

// WithClock replaces the version clock.
func (s *SQLiteStore) WithClock(now Clock) *SQLiteStore {
	s.now = now
	return s
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Write stores t in a new versioned table inside one transaction.
func (s *SQLiteStore) Write(ctx context.Context, t *table.Table, layer Layer, name string) (string, error) {
	if _, err := ParseLayer(string(layer)); err != nil {
		return "", errors.NewAppValidationError(err.Error())
	}
	if err := checkName(name); err != nil {
		return "", errors.NewAppValidationError(err.Error())
	}

	if len(t.Columns()) == 0 {
		return "", errors.NewAppValidationError(fmt.Sprintf("table %s has no columns", name))
	}

	now := s.now()
	base := fmt.Sprintf("%s_%s_%s", layer, name, now.Format(TimestampLayout))
	tableName, err := s.writeTable(ctx, t, layer, name, base, schemaOf(t), now)
	if err != nil {
		return "", errors.NewStorageError("failed to write table", err).WithContext("table", base)
	}

	s.logger.InfoContext(ctx, "table written",
		slog.String("layer", string(layer)),
		slog.String("table", name),
		slog.String("sql_table", tableName),
		slog.Int("rows", t.Len()))
	return s.dbPath + "#" + tableName, nil
}

// writeTable creates the first free table named base[_<seq>] and returns its
// name. Existing versions are never replaced.
func (s *SQLiteStore) writeTable(ctx context.Context, t *table.Table, layer Layer, name, base string, columns []catalogColumn, now time.Time) (tableName string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if tableName, err = freeTableName(ctx, tx, base); err != nil {
		return "", err
	}

	defs := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quoteIdent(c.Name) + " " + sqlType(c.Kind)
		marks[i] = "?"
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(tableName), strings.Join(defs, ", "))); err != nil {
		return "", fmt.Errorf("failed to create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(tableName), strings.Join(marks, ", ")))
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for i := 0; i < t.Len(); i++ {
		for j, c := range columns {
			args[j] = encodeSQL(t.Value(c.Name, i), c.Kind)
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return "", fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	meta, err := json.Marshal(columns)
	if err != nil {
		return "", err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO layer_catalog (layer, name, table_name, columns, row_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(layer), name, tableName, string(meta), t.Len(), now.UTC().Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("failed to update catalog: %w", err)
	}
	return tableName, tx.Commit()
}

func freeTableName(ctx context.Context, tx *sql.Tx, base string) (string, error) {
	for seq := 0; seq < maxVersionsPerStamp; seq++ {
		candidate := versioned(base, seq)
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, candidate).Scan(&n); err != nil {
			return "", fmt.Errorf("failed to check table name: %w", err)
		}
		if n == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("too many versions of %s", base)
}

// ReadLatest reads the newest catalog entry of a table.
func (s *SQLiteStore) ReadLatest(ctx context.Context, layer Layer, name string) (*table.Table, error) {
	var tableName, meta string
	err := s.db.QueryRowContext(ctx,
		`SELECT table_name, columns FROM layer_catalog WHERE layer = ? AND name = ? ORDER BY id DESC LIMIT 1`,
		string(layer), name).Scan(&tableName, &meta)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("%s table %s", layer, name))
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to query catalog", err)
	}

	var columns []catalogColumn
	if err := json.Unmarshal([]byte(meta), &columns); err != nil {
		return nil, errors.NewStorageError("corrupt catalog entry", err).WithContext("table", tableName)
	}

	t, err := s.readTable(ctx, tableName, columns)
	if err != nil {
		return nil, errors.NewStorageError("failed to read table", err).WithContext("table", tableName)
	}
	return t, nil
}

func (s *SQLiteStore) readTable(ctx context.Context, tableName string, columns []catalogColumn) (*table.Table, error) {
	names := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
		quoted[i] = quoteIdent(c.Name)
	}
	t := table.New(names...)
	if len(columns) == 0 {
		return t, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(quoted, ", "), quoteIdent(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	values := make([]any, len(columns))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, c := range columns {
			v, err := decodeSQL(raw[i], c.Kind)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c.Name, err)
			}
			values[i] = v
		}
		if err := t.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	return t, rows.Err()
}

// List returns the distinct table names recorded for layer.
func (s *SQLiteStore) List(ctx context.Context, layer Layer) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT name FROM layer_catalog WHERE layer = ? ORDER BY name`, string(layer))
	if err != nil {
		return nil, errors.NewStorageError("failed to query catalog", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.NewStorageError("failed to scan catalog", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlType(kind columnKind) string {
	switch kind {
	case kindInt:
		return "INTEGER"
	case kindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func encodeSQL(v any, kind columnKind) any {
	if v == nil {
		return nil
	}
	switch kind {
	case kindInt, kindFloat:
		return v
	default:
		return formatCell(v)
	}
}

func decodeSQL(v any, kind columnKind) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case kindInt:
		if i, ok := table.ToInt(v); ok {
			return i, nil
		}
	case kindFloat:
		if f, ok := table.ToFloat(v); ok {
			return f, nil
		}
	case kindDecimal:
		return decimal.NewFromString(asString(v))
	case kindTime:
		return time.Parse(CellTimeLayout, asString(v))
	case kindString:
		return asString(v), nil
	case kindMixed:
		return inferCell(asString(v)), nil
	}
	return nil, fmt.Errorf("unexpected %T value for %s column", v, kind)
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
