package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Table is an in-memory columnar table. Every column holds exactly Len() values;
// a nil value is a null cell.
type Table struct {
	names []string
	cols  map[string][]any
	rows  int
}

// New creates an empty table with the given columns.
func New(names ...string) *Table {
	t := &Table{
		names: make([]string, 0, len(names)),
		cols:  make(map[string][]any, len(names)),
	}
	for _, name := range names {
		if _, exists := t.cols[name]; exists {
			continue
		}
		t.names = append(t.names, name)
		t.cols[name] = []any{}
	}
	return t
}

// FromRows builds a table from row-major values. Every row must have len(names) cells.
func FromRows(names []string, rows [][]any) (*Table, error) {
	t := New(names...)
	for i, row := range rows {
		if err := t.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.cols[name]
	return ok
}

// MissingColumns returns the names from required that the table does not have.
func (t *Table) MissingColumns(required ...string) []string {
	var missing []string
	for _, name := range required {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Column returns the values of a column. The slice must not be modified.
func (t *Table) Column(name string) ([]any, bool) {
	if t == nil {
		return nil, false
	}
	values, ok := t.cols[name]
	return values, ok
}

// Value returns a single cell, or nil when the column does not exist.
func (t *Table) Value(name string, row int) any {
	values, ok := t.Column(name)
	if !ok || row < 0 || row >= len(values) {
		return nil
	}
	return values[row]
}

// Row returns a copy of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.names))
	for j, name := range t.names {
		row[j] = t.cols[name][i]
	}
	return row
}

// AppendRow appends one row given in column order.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.names) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.names))
	}
	for j, name := range t.names {
		t.cols[name] = append(t.cols[name], values[j])
	}
	t.rows++
	return nil
}

// SetColumn adds or replaces a column. The value count must match Len(),
// except on a table without columns.
func (t *Table) SetColumn(name string, values []any) error {
	if len(t.names) > 0 && len(values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	if _, exists := t.cols[name]; !exists {
		t.names = append(t.names, name)
	}
	t.cols[name] = values
	t.rows = len(values)
	return nil
}

// Clone returns a copy that shares no column storage with t.
func (t *Table) Clone() *Table {
	out := New(t.names...)
	for _, name := range t.names {
		values := make([]any, len(t.cols[name]))
		copy(values, t.cols[name])
		out.cols[name] = values
	}
	out.rows = t.rows
	return out
}

// Take returns a new table holding the given rows, in the given order.
func (t *Table) Take(indices []int) *Table {
	out := New(t.names...)
	for _, name := range t.names {
		src := t.cols[name]
		values := make([]any, len(indices))
		for k, i := range indices {
			values[k] = src[i]
		}
		out.cols[name] = values
	}
	out.rows = len(indices)
	return out
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	indices := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return t.Take(indices)
}

// Head returns the first n rows (all rows when n exceeds Len).
func (t *Table) Head(n int) *Table {
	if n > t.rows {
		n = t.rows
	}
	if n < 0 {
		n = 0
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return t.Take(indices)
}

// RowKey returns a key that is equal for two rows exactly when every cell has the
// same type and value.
func (t *Table) RowKey(row int) string {
	return t.KeyOf(row, t.names...)
}

// KeyOf returns the equality key of the given columns of a row.
func (t *Table) KeyOf(row int, names ...string) string {
	var b strings.Builder
	for j, name := range names {
		if j > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(cellKey(t.Value(name, row)))
	}
	return b.String()
}

func cellKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x00null"
	case string:
		return "s:" + x
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	case decimal.Decimal:
		return "d:" + x.String()
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}
