package testutil

import (
	"testing"

	"retailpulse/internal/table"
	"retailpulse/pkg/contracts/domain"
)

// RawLine is one raw transaction line in fixture form. Nil fields become null cells.
type RawLine struct {
	Invoice     any
	StockCode   any
	Description any
	Quantity    any
	Timestamp   any
	UnitPrice   any
	CustomerID  any
	Country     any
}

func (l RawLine) cells() []any {
	return []any{
		l.Invoice,
		l.StockCode,
		l.Description,
		l.Quantity,
		l.Timestamp,
		l.UnitPrice,
		l.CustomerID,
		l.Country,
	}
}

// RawTable builds a raw table with the contract columns from fixture lines.
func RawTable(t testing.TB, lines ...RawLine) *table.Table {
	t.Helper()

	tbl := table.New(domain.RawColumns...)
	for i, l := range lines {
		if err := tbl.AppendRow(l.cells()...); err != nil {
			t.Fatalf("fixture line %d: %v", i, err)
		}
	}
	return tbl
}

// SampleLines returns a small raw dataset shaped like the UCI online retail
// workbook: one duplicate line, a line without customer, a cancellation with a
// negative quantity, a zero price line and a line with an unparsable timestamp.
func SampleLines() []RawLine {
	return []RawLine{
		{"536365", "85123A", " white hanging heart t-light holder ", 6.0, "2010-12-01 08:26:00", 2.55, 17850.0, "United Kingdom"},
		{"536365", "71053", "WHITE METAL LANTERN", 6.0, "2010-12-01 08:26:00", 3.39, 17850.0, "United Kingdom"},
		{"536365", "71053", "WHITE METAL LANTERN", 6.0, "2010-12-01 08:26:00", 3.39, 17850.0, "United Kingdom"},
		{"536366", "22633", "HAND WARMER UNION JACK", 6.0, "2010-12-01 08:28:00", 1.85, nil, "United Kingdom"},
		{"C536379", "D", "Discount", -1.0, "2010-12-01 09:41:00", 27.5, 14527.0, "United Kingdom"},
		{"536370", "22728", "ALARM CLOCK BAKELIKE PINK", 24.0, "2010-12-01 08:45:00", 3.75, 12583.0, "France "},
		{"536370", "POST", "POSTAGE", 3.0, "2010-12-01 08:45:00", 0.0, 12583.0, "France"},
		{"536371", "22086", "PAPER CHAIN KIT 50'S CHRISTMAS", 80.0, "not a date", 2.55, 13748.0, "United Kingdom"},
		{536372.0, "22632", nil, 6.0, 40513.5, 1.85, 17850.0, "United Kingdom"},
		{"539000", "21730", "GLASS STAR FROSTED T-LIGHT HOLDER", 12.0, "2011-01-05 10:00:00", 4.25, 12662.0, "Germany"},
	}
}
