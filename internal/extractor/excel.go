package extractor

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"retailpulse/internal/table"
)

// ReadWorkbook reads one sheet of an xlsx workbook. An empty sheet name
// selects the first sheet. Cell values are read raw, so dates arrive as
// Excel serial numbers.
func ReadWorkbook(r io.Reader, sheet string) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return buildTable(rows)
}

// buildTable turns text rows, the first of which is the header, into a table.
// Short rows are padded with nulls.
func buildTable(rows [][]string) (*table.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	names := canonicalHeaders(rows[0])
	t := table.New(names...)

	values := make([]any, len(names))
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		for j := range values {
			values[j] = nil
			if j < len(row) {
				values[j] = parseCell(names[j], row[j])
			}
		}
		if err := t.AppendRow(values...); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return t, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
