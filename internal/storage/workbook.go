package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"retailpulse/internal/config"
	"retailpulse/internal/errors"
	"retailpulse/internal/table"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// NamedTable is a table with the sheet name it is exported under.
type NamedTable struct {
	Name  string
	Table *table.Table
}

// WorkbookExporter writes gold tables into a single xlsx report.
type WorkbookExporter struct {
	paths  *config.Paths
	now    Clock
	logger *slog.Logger
}

// NewWorkbookExporter creates an exporter writing into paths.ReportDir.
func NewWorkbookExporter(paths *config.Paths, logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{
		paths:  paths,
		now:    time.Now,
		logger: logger.With(slog.String("component", "workbook_exporter")),
	}
}

// WithClock replaces the clock used in the file name.
func (w *WorkbookExporter) WithClock(now Clock) *WorkbookExporter {
	w.now = now
	return w
}

// Export writes one sheet per non-nil table to gold_report_<timestamp>.xlsx
// and returns the file path.
func (w *WorkbookExporter) Export(ctx context.Context, tables []NamedTable) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)
	sheets := 0
	for _, nt := range tables {
		if nt.Table == nil {
			continue
		}
		sheet := sheetName(nt.Name)
		if sheets == 0 {
			if err := f.SetSheetName(first, sheet); err != nil {
				return "", errors.NewStorageError("failed to name sheet", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return "", errors.NewStorageError("failed to add sheet", err).WithContext("sheet", sheet)
		}
		if err := writeSheet(f, sheet, nt.Table); err != nil {
			return "", errors.NewStorageError("failed to write sheet", err).WithContext("sheet", sheet)
		}
		sheets++
	}
	if sheets == 0 {
		return "", errors.NewAppValidationError("no gold tables to export")
	}

	if err := os.MkdirAll(w.paths.ReportDir, 0o755); err != nil {
		return "", errors.NewStorageError("failed to create report directory", err)
	}
	path := filepath.Join(w.paths.ReportDir, fmt.Sprintf("gold_report_%s.xlsx", w.now().Format(TimestampLayout)))
	if err := f.SaveAs(path); err != nil {
		return "", errors.NewStorageError("failed to save workbook", err).WithContext("path", path)
	}

	w.logger.InfoContext(ctx, "gold workbook exported",
		slog.String("path", path),
		slog.Int("sheets", sheets))
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, t *table.Table) error {
	columns := t.Columns()
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	row := make([]interface{}, len(columns))
	for i := 0; i < t.Len(); i++ {
		for j, c := range columns {
			row[j] = excelValue(t.Value(c, i))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// excelValue converts a cell to a type excelize writes natively.
func excelValue(v any) interface{} {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	default:
		return v
	}
}

func sheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	return name
}
