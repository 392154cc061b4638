package extractor

import (
	"math"
	"strconv"
	"strings"

	"retailpulse/pkg/contracts/domain"
)

// headerAliases maps normalized source headers onto contract columns.
var headerAliases = map[string]string{
	"invoiceno":        domain.ColInvoiceID,
	"invoice":          domain.ColInvoiceID,
	"invoiceid":        domain.ColInvoiceID,
	"stockcode":        domain.ColStockCode,
	"description":      domain.ColDescription,
	"quantity":         domain.ColQuantity,
	"invoicedate":      domain.ColInvoiceTimestamp,
	"invoicetimestamp": domain.ColInvoiceTimestamp,
	"unitprice":        domain.ColUnitPrice,
	"price":            domain.ColUnitPrice,
	"customerid":       domain.ColCustomerID,
	"customer":         domain.ColCustomerID,
	"country":          domain.ColCountry,
}

// CanonicalColumn maps a source header to its contract column name. Unknown
// headers are returned trimmed.
func CanonicalColumn(header string) string {
	h := strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(h))
	if name, ok := headerAliases[key]; ok {
		return name
	}
	return h
}

// canonicalHeaders maps a header row, suffixing repeated names.
func canonicalHeaders(row []string) []string {
	seen := make(map[string]int, len(row))
	out := make([]string, len(row))
	for i, h := range row {
		name := CanonicalColumn(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if n := seen[name]; n > 0 {
			out[i] = name + "_" + strconv.Itoa(n)
		} else {
			out[i] = name
		}
		seen[name]++
	}
	return out
}

// numericColumns are the contract columns whose text is read as a number.
// Every other column keeps its source text so codes like "00123" survive.
var numericColumns = map[string]bool{
	domain.ColQuantity:         true,
	domain.ColInvoiceTimestamp: true,
	domain.ColUnitPrice:        true,
	domain.ColCustomerID:       true,
}

// parseCell turns the text of column into a cell: blank is null, finite
// numeric text in a numeric column is float64, anything else stays a string.
func parseCell(column, s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	if !numericColumns[column] {
		return s
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}
