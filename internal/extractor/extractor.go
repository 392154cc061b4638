package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"retailpulse/internal/config"
	"retailpulse/internal/errors"
	"retailpulse/internal/table"
	"retailpulse/pkg/contracts/domain"
)

// Extractor acquires the raw dataset as a table.
type Extractor interface {
	Extract(ctx context.Context) (*table.Table, error)
}

// Format is the file format of a source.
type Format string

const (
	FormatExcel Format = "xlsx"
	FormatCSV   Format = "csv"
)

// SourceExtractor reads a workbook or CSV file from a local path or an
// http(s) URL and maps its headers onto the raw column contract.
type SourceExtractor struct {
	cfg    config.SourceConfig
	client *http.Client
	logger *slog.Logger
}

// Option customizes a SourceExtractor.
type Option func(*SourceExtractor)

// WithHTTPClient replaces the download client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *SourceExtractor) { e.client = c }
}

// New creates an extractor for the configured source.
func New(cfg config.SourceConfig, logger *slog.Logger, opts ...Option) *SourceExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &SourceExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(slog.String("component", "extractor")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract loads the source and returns the raw table.
func (e *SourceExtractor) Extract(ctx context.Context) (*table.Table, error) {
	start := time.Now()
	location := e.cfg.Location
	format, err := DetectFormat(location)
	if err != nil {
		return nil, errors.NewExtractionError("unsupported source", err).WithContext("source", location)
	}

	e.logger.InfoContext(ctx, "extracting raw dataset",
		slog.String("source", location),
		slog.String("format", string(format)))

	data, err := e.read(ctx, location)
	if err != nil {
		return nil, errors.NewExtractionError("failed to read source", err).WithContext("source", location)
	}

	var raw *table.Table
	switch format {
	case FormatExcel:
		raw, err = ReadWorkbook(bytes.NewReader(data), e.cfg.Sheet)
	case FormatCSV:
		raw, err = ReadCSV(bytes.NewReader(data))
	}
	if err != nil {
		parseErr := errors.NewParsingError(fmt.Sprintf("invalid %s content", format), err)
		return nil, errors.NewExtractionError("failed to parse source", parseErr).WithContext("source", location)
	}

	if missing := raw.MissingColumns(domain.RawColumns...); len(missing) > 0 {
		e.logger.WarnContext(ctx, "source lacks contract columns", slog.Any("missing", missing))
	}
	e.logger.InfoContext(ctx, "raw dataset extracted",
		slog.Int("rows", raw.Len()),
		slog.Int("columns", len(raw.Columns())),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", time.Since(start)))
	return raw, nil
}

func (e *SourceExtractor) read(ctx context.Context, location string) ([]byte, error) {
	if isURL(location) {
		return e.download(ctx, location)
	}
	f, err := os.Open(location)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// DetectFormat infers the format from the file extension of a path or URL.
func DetectFormat(location string) (Format, error) {
	p := location
	if isURL(location) {
		u, err := url.Parse(location)
		if err != nil {
			return "", err
		}
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".xlsx", ".xlsm":
		return FormatExcel, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown file extension in %q", location)
	}
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
