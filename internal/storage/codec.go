package storage

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/internal/table"
)

// CellTimeLayout is the text form of timestamps in stored tables.
const CellTimeLayout = "2006-01-02 15:04:05"

// formatCell renders a cell as text. Null becomes the empty string.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(CellTimeLayout)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// inferCell parses stored text back into the narrowest cell type: int64,
// float64, time.Time or string. The empty string is null. Numbers are only
// taken when formatCell would print them back as the same text, so "00123"
// and "1E5" stay strings.
func inferCell(s string) any {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(i, 10) == s {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) &&
		strconv.FormatFloat(f, 'f', -1, 64) == s {
		return f
	}
	if ts, err := time.Parse(CellTimeLayout, s); err == nil {
		return ts
	}
	return s
}

// catalogColumn describes one stored column.
type catalogColumn struct {
	Name string     `json:"name"`
	Kind columnKind `json:"kind"`
}

// schemaOf lists the columns of t with their kinds.
func schemaOf(t *table.Table) []catalogColumn {
	columns := make([]catalogColumn, 0, len(t.Columns()))
	for _, col := range t.Columns() {
		values, _ := t.Column(col)
		columns = append(columns, catalogColumn{Name: col, Kind: kindOf(values)})
	}
	return columns
}

// columnKind names the single cell type of a column, or kindMixed.
type columnKind string

const (
	kindInt     columnKind = "int"
	kindFloat   columnKind = "float"
	kindDecimal columnKind = "decimal"
	kindTime    columnKind = "time"
	kindString  columnKind = "string"
	kindMixed   columnKind = "mixed"
)

func kindOf(values []any) columnKind {
	var kind columnKind
	for _, v := range values {
		var k columnKind
		switch v.(type) {
		case nil:
			continue
		case int64:
			k = kindInt
		case float64:
			k = kindFloat
		case decimal.Decimal:
			k = kindDecimal
		case time.Time:
			k = kindTime
		case string:
			k = kindString
		default:
			return kindMixed
		}
		if kind == "" {
			kind = k
		} else if kind != k {
			return kindMixed
		}
	}
	if kind == "" {
		return kindString
	}
	return kind
}
