package dataprocessing

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/internal/errors"
	"retailpulse/internal/extractor"
	"retailpulse/internal/shared/testutil"
	"retailpulse/internal/table"
	"retailpulse/pkg/contracts/domain"
)

func cleanSample(t *testing.T, cfg CleanerConfig) *CleanResult {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	res, err := NewCleaner(cfg, logger).Clean(context.Background(), testutil.RawTable(t, testutil.SampleLines()...))
	require.NoError(t, err)
	return res
}

func TestCleaner_Sample(t *testing.T) {
	res := cleanSample(t, DefaultCleanerConfig())
	out := res.Table

	require.Equal(t, 6, out.Len())
	assert.Equal(t, 10, res.Summary.InitialRows)
	assert.Equal(t, 6, res.Summary.FinalRows)
	assert.Equal(t, 4, res.Summary.RowsRemoved)
	assert.InDelta(t, 0.4, res.Summary.RemovalRatio, 1e-12)
	assert.Equal(t, 1, res.Summary.InvalidTimestamps)
	assert.Equal(t, 1, res.Quality.Duplicates)

	for _, col := range []string{domain.ColTotalPrice, domain.ColYear, domain.ColMonth, domain.ColDayOfWeek, domain.ColHour} {
		assert.True(t, out.HasColumn(col), col)
	}

	// First line: normalized description, exact total, derived time parts.
	assert.Equal(t, "WHITE HANGING HEART T-LIGHT HOLDER", out.Value(domain.ColDescription, 0))
	assert.Equal(t, "536365", out.Value(domain.ColInvoiceID, 0))
	assert.Equal(t, int64(17850), out.Value(domain.ColCustomerID, 0))
	assert.Equal(t, int64(6), out.Value(domain.ColQuantity, 0))
	assert.True(t, decimal.RequireFromString("15.30").Equal(out.Value(domain.ColTotalPrice, 0).(decimal.Decimal)))
	assert.Equal(t, int64(2010), out.Value(domain.ColYear, 0))
	assert.Equal(t, int64(12), out.Value(domain.ColMonth, 0))
	assert.Equal(t, int64(2), out.Value(domain.ColDayOfWeek, 0), "2010-12-01 is a Wednesday")
	assert.Equal(t, int64(8), out.Value(domain.ColHour, 0))

	// Country is trimmed but keeps its case.
	assert.Equal(t, "France", out.Value(domain.ColCountry, 2))

	// Unparsable timestamp survives with null derived fields.
	assert.Nil(t, out.Value(domain.ColInvoiceTimestamp, 3))
	assert.Nil(t, out.Value(domain.ColYear, 3))
	assert.Nil(t, out.Value(domain.ColHour, 3))

	// Numeric invoice ids are coerced to text, null descriptions stay null.
	assert.Equal(t, "536372", out.Value(domain.ColInvoiceID, 4))
	assert.Nil(t, out.Value(domain.ColDescription, 4))
	assert.Equal(t, int64(12), out.Value(domain.ColHour, 4))
}

func TestCleaner_StageLedger(t *testing.T) {
	res := cleanSample(t, DefaultCleanerConfig())

	want := []domain.StageCount{
		{Stage: StageRemoveDuplicates, RowsIn: 10, RowsOut: 9, CumulativeRemoved: 1},
		{Stage: StageDropMissingCustomer, RowsIn: 9, RowsOut: 8, CumulativeRemoved: 2},
		{Stage: StageFilterQuantityPrice, RowsIn: 8, RowsOut: 6, CumulativeRemoved: 4},
		{Stage: StageTotalPrice, RowsIn: 6, RowsOut: 6, CumulativeRemoved: 4},
		{Stage: StageParseTimestamp, RowsIn: 6, RowsOut: 6, CumulativeRemoved: 4},
		{Stage: StageTimeParts, RowsIn: 6, RowsOut: 6, CumulativeRemoved: 4},
		{Stage: StageNormalizeText, RowsIn: 6, RowsOut: 6, CumulativeRemoved: 4},
		{Stage: StageCoerceCustomerID, RowsIn: 6, RowsOut: 6, CumulativeRemoved: 4},
	}
	assert.Equal(t, want, res.Summary.Stages)
}

func TestCleaner_DropInvalidTimestamps(t *testing.T) {
	cfg := DefaultCleanerConfig()
	cfg.DropInvalidTimestamps = true
	res := cleanSample(t, cfg)

	assert.Equal(t, 5, res.Table.Len())
	assert.Equal(t, 1, res.Summary.InvalidTimestamps)
	assert.Equal(t, StageDropInvalidTimestamps, res.Summary.Stages[5].Stage)
	for i := 0; i < res.Table.Len(); i++ {
		assert.NotNil(t, res.Table.Value(domain.ColInvoiceTimestamp, i))
	}
}

func TestCleaner_DoesNotModifyRaw(t *testing.T) {
	raw := testutil.RawTable(t, testutil.SampleLines()...)
	before := raw.Clone()

	_, err := NewCleaner(DefaultCleanerConfig(), nil).Clean(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, before, raw)
}

func TestCleaner_SchemaError(t *testing.T) {
	raw, err := table.FromRows([]string{domain.ColInvoiceID, domain.ColQuantity}, [][]any{{"1", 1.0}})
	require.NoError(t, err)

	_, err = NewCleaner(DefaultCleanerConfig(), nil).Clean(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, errors.IsSchemaError(err))
	assert.Contains(t, err.Error(), domain.ColCustomerID)
}

func TestCleaner_PriceAndQuantityBoundaries(t *testing.T) {
	ts := "2011-03-01 10:00:00"
	lines := []testutil.RawLine{
		{Invoice: "1", StockCode: "A", Description: "a", Quantity: 1.0, Timestamp: ts, UnitPrice: 0.01, CustomerID: 1.0, Country: "UK"},     // both bounds inclusive
		{Invoice: "2", StockCode: "A", Description: "a", Quantity: 1.0, Timestamp: ts, UnitPrice: 10000.0, CustomerID: 1.0, Country: "UK"},  // upper bound
		{Invoice: "3", StockCode: "A", Description: "a", Quantity: 1.0, Timestamp: ts, UnitPrice: 0.009, CustomerID: 1.0, Country: "UK"},    // below min price
		{Invoice: "4", StockCode: "A", Description: "a", Quantity: 1.0, Timestamp: ts, UnitPrice: 10000.01, CustomerID: 1.0, Country: "UK"}, // above max price
		{Invoice: "5", StockCode: "A", Description: "a", Quantity: 0.0, Timestamp: ts, UnitPrice: 1.0, CustomerID: 1.0, Country: "UK"},      // zero quantity
		{Invoice: "6", StockCode: "A", Description: "a", Quantity: 2.5, Timestamp: ts, UnitPrice: 1.0, CustomerID: 1.0, Country: "UK"},      // fractional quantity
		{Invoice: "7", StockCode: "A", Description: "a", Quantity: "x", Timestamp: ts, UnitPrice: 1.0, CustomerID: 1.0, Country: "UK"},      // non-numeric quantity
		{Invoice: "8", StockCode: "A", Description: "a", Quantity: 3.0, Timestamp: ts, UnitPrice: "abc", CustomerID: 1.0, Country: "UK"},    // malformed price
		{Invoice: "9", StockCode: "A", Description: "a", Quantity: 3.0, Timestamp: ts, UnitPrice: 2.0, CustomerID: "abc", Country: "UK"},    // non-numeric customer
	}

	res, err := NewCleaner(DefaultCleanerConfig(), nil).Clean(context.Background(), testutil.RawTable(t, lines...))
	require.NoError(t, err)

	ids, _ := res.Table.Column(domain.ColInvoiceID)
	assert.Equal(t, []any{"1", "2"}, ids)
}

func TestCleaner_KeepsExtractedIdentifiersVerbatim(t *testing.T) {
	const source = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n" +
		"536365,00123,PAPER CUP,2,2010-12-01 08:26:00,1.25,17850,United Kingdom\n" +
		"536365,123,PAPER PLATE,2,2010-12-01 08:26:00,1.25,17850,United Kingdom\n" +
		"536366,1E5,NaN,1,2010-12-01 09:00:00,2.00,17850,United Kingdom\n"

	raw, err := extractor.ReadCSV(strings.NewReader(source))
	require.NoError(t, err)
	assert.Equal(t, "00123", raw.Value(domain.ColStockCode, 0))
	assert.Equal(t, "NaN", raw.Value(domain.ColDescription, 2))

	res, err := NewCleaner(DefaultCleanerConfig(), nil).Clean(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, 3, res.Table.Len())

	codes, _ := res.Table.Column(domain.ColStockCode)
	assert.Equal(t, []any{"00123", "123", "1E5"}, codes)
	assert.Equal(t, "NAN", res.Table.Value(domain.ColDescription, 2))
	assert.Equal(t, "536366", res.Table.Value(domain.ColInvoiceID, 2))
	assert.Equal(t, int64(17850), res.Table.Value(domain.ColCustomerID, 2))
}

func TestRemoveDuplicates(t *testing.T) {
	tbl, err := table.FromRows([]string{"A", "B"}, [][]any{
		{1.0, "a"},
		{1.0, "a"},
		{2.0, "b"},
		{3.0, "c"},
	})
	require.NoError(t, err)

	out, err := removeDuplicates(nil, tbl)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
}

// TestCleaner_Invariants checks the validated-table guarantees on random input.
func TestCleaner_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	countries := []string{"United Kingdom", " France", "Germany ", "EIRE"}
	prices := []any{0.0, 0.005, 0.01, 0.42, 2.55, 9999.99, 10000.0, 10000.5, -1.0, nil, "n/a"}

	lines := make([]testutil.RawLine, 0, 2000)
	for i := 0; i < 2000; i++ {
		var customer any
		if rng.Intn(5) > 0 {
			customer = float64(12000 + rng.Intn(50))
		}
		var ts any = time.Date(2011, time.Month(1+rng.Intn(12)), 1+rng.Intn(28), rng.Intn(24), 0, 0, 0, time.UTC).
			Format("2006-01-02 15:04:05")
		if rng.Intn(20) == 0 {
			ts = "??"
		}
		lines = append(lines, testutil.RawLine{
			Invoice:     float64(536000 + rng.Intn(300)),
			StockCode:   []string{"85123A", "71053", "22633"}[rng.Intn(3)],
			Description: "item",
			Quantity:    float64(rng.Intn(30) - 5),
			Timestamp:   ts,
			UnitPrice:   prices[rng.Intn(len(prices))],
			CustomerID:  customer,
			Country:     countries[rng.Intn(len(countries))],
		})
	}
	raw := testutil.RawTable(t, lines...)

	res, err := NewCleaner(DefaultCleanerConfig(), nil).Clean(context.Background(), raw)
	require.NoError(t, err)
	out := res.Table

	assert.LessOrEqual(t, out.Len(), raw.Len())
	assert.Equal(t, raw.Len()-out.Len(), res.Summary.RowsRemoved)

	minPrice, maxPrice := decimal.RequireFromString("0.01"), decimal.NewFromInt(10000)
	for i := 0; i < out.Len(); i++ {
		qty := out.Value(domain.ColQuantity, i).(int64)
		price := out.Value(domain.ColUnitPrice, i).(decimal.Decimal)
		total := out.Value(domain.ColTotalPrice, i).(decimal.Decimal)

		assert.Greater(t, qty, int64(0))
		assert.True(t, price.GreaterThanOrEqual(minPrice) && price.LessThanOrEqual(maxPrice), price.String())
		assert.True(t, total.Equal(price.Mul(decimal.NewFromInt(qty))))
		assert.InDelta(t, float64(qty)*price.InexactFloat64(), total.InexactFloat64(), 1e-9)
		assert.IsType(t, int64(0), out.Value(domain.ColCustomerID, i))
	}
}
