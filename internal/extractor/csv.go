package extractor

import (
	"encoding/csv"
	"fmt"
	"io"

	"retailpulse/internal/table"
)

// ReadCSV reads a comma-separated file with a header row.
func ReadCSV(r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return buildTable(rows)
}
