package dataprocessing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/internal/table"
)

// requireColumns reports the columns an aggregation needs but t lacks.
func requireColumns(t *table.Table, names ...string) error {
	if missing := t.MissingColumns(names...); len(missing) > 0 {
		return fmt.Errorf("validated table is missing columns %v", missing)
	}
	return nil
}

func sumDecimal(t *table.Table, name string, rows []int) decimal.Decimal {
	total := decimal.Zero
	for _, i := range rows {
		if d, ok := table.ToDecimal(t.Value(name, i)); ok {
			total = total.Add(d)
		}
	}
	return total
}

func sumInt(t *table.Table, name string, rows []int) int64 {
	var total int64
	for _, i := range rows {
		if n, ok := table.ToInt(t.Value(name, i)); ok {
			total += n
		}
	}
	return total
}

// timeRange returns the earliest and latest timestamp among rows, ignoring nulls.
func timeRange(t *table.Table, name string, rows []int) (first, last time.Time, ok bool) {
	for _, i := range rows {
		ts, isTime := t.Value(name, i).(time.Time)
		if !isTime {
			continue
		}
		if !ok || ts.Before(first) {
			first = ts
		}
		if !ok || ts.After(last) {
			last = ts
		}
		ok = true
	}
	return first, last, ok
}

// div returns num/den as a float, 0 when den is 0.
func div(num decimal.Decimal, den int64) float64 {
	if den == 0 {
		return 0
	}
	return num.Div(decimal.NewFromInt(den)).InexactFloat64()
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func timeOrNull(ts time.Time) any {
	if ts.IsZero() {
		return nil
	}
	return ts
}
