package table

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairs(t *testing.T) *Table {
	t.Helper()
	tbl, err := FromRows([]string{"A", "B"}, [][]any{
		{1.0, "a"},
		{1.0, "a"},
		{2.0, "b"},
		{3.0, "c"},
	})
	require.NoError(t, err)
	return tbl
}

func TestFromRows(t *testing.T) {
	tbl := pairs(t)

	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, []string{"A", "B"}, tbl.Columns())
	assert.Equal(t, []any{2.0, "b"}, tbl.Row(2))
	assert.Equal(t, "c", tbl.Value("B", 3))
	assert.Nil(t, tbl.Value("missing", 0))

	_, err := FromRows([]string{"A"}, [][]any{{1.0, 2.0}})
	assert.Error(t, err)
}

func TestMissingColumns(t *testing.T) {
	tbl := pairs(t)
	assert.Empty(t, tbl.MissingColumns("A", "B"))
	assert.Equal(t, []string{"C", "D"}, tbl.MissingColumns("A", "C", "D"))

	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
	assert.False(t, nilTable.HasColumn("A"))
}

func TestSetColumn(t *testing.T) {
	tbl := pairs(t)

	require.NoError(t, tbl.SetColumn("C", []any{nil, nil, nil, nil}))
	assert.True(t, tbl.HasColumn("C"))
	assert.Equal(t, []string{"A", "B", "C"}, tbl.Columns())

	assert.Error(t, tbl.SetColumn("D", []any{1.0}))

	empty := New()
	require.NoError(t, empty.SetColumn("X", []any{1.0, 2.0}))
	assert.Equal(t, 2, empty.Len())
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := pairs(t)
	clone := tbl.Clone()
	require.NoError(t, clone.SetColumn("B", []any{"z", "z", "z", "z"}))

	assert.Equal(t, "a", tbl.Value("B", 0))
	assert.Equal(t, "z", clone.Value("B", 0))
}

func TestFilterAndHead(t *testing.T) {
	tbl := pairs(t)

	odd := tbl.Filter(func(i int) bool { return i%2 == 1 })
	assert.Equal(t, 2, odd.Len())
	assert.Equal(t, []any{1.0, "a"}, odd.Row(0))
	assert.Equal(t, []any{3.0, "c"}, odd.Row(1))

	assert.Equal(t, 4, tbl.Head(50).Len())
	assert.Equal(t, 2, tbl.Head(2).Len())
	assert.Equal(t, 0, tbl.Head(-1).Len())
}

func TestRowKey(t *testing.T) {
	tbl := pairs(t)
	assert.Equal(t, tbl.RowKey(0), tbl.RowKey(1))
	assert.NotEqual(t, tbl.RowKey(1), tbl.RowKey(2))

	typed, err := FromRows([]string{"v"}, [][]any{{"1"}, {1.0}, {nil}, {int64(1)}})
	require.NoError(t, err)
	keys := map[string]bool{}
	for i := 0; i < typed.Len(); i++ {
		keys[typed.RowKey(i)] = true
	}
	assert.Len(t, keys, 4, "cells of different types must not collide")
}

func TestGroupBy(t *testing.T) {
	tbl, err := FromRows([]string{"country", "invoice"}, [][]any{
		{"UK", "001"},
		{"France", "003"},
		{"UK", "002"},
		{nil, "009"},
		{"France", "003"},
	})
	require.NoError(t, err)

	groups, err := tbl.GroupBy("country")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, []any{"UK"}, groups[0].Key)
	assert.Equal(t, []int{0, 2}, groups[0].Rows)
	assert.Equal(t, []any{"France"}, groups[1].Key)
	assert.Equal(t, []int{1, 4}, groups[1].Rows)

	assert.Equal(t, 1, tbl.CountDistinct("invoice", groups[1].Rows))
	assert.Equal(t, 2, tbl.CountDistinct("invoice", groups[0].Rows))

	_, err = tbl.GroupBy()
	assert.Error(t, err)
	_, err = tbl.GroupBy("region")
	assert.Error(t, err)
}

func TestConversions(t *testing.T) {
	tests := []struct {
		name string
		in   any
		str  string
		ok   bool
	}{
		{"integral float", 536365.0, "536365", true},
		{"fractional float", 2.5, "2.5", true},
		{"string", "C536379", "C536379", true},
		{"int64", int64(17850), "17850", true},
		{"null", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := ToString(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.str, s)
		})
	}

	f, ok := ToFloat("1,250.50")
	assert.True(t, ok)
	assert.Equal(t, 1250.5, f)

	_, ok = ToFloat("abc")
	assert.False(t, ok)

	n, ok := ToInt(17850.0)
	assert.True(t, ok)
	assert.Equal(t, int64(17850), n)

	d, ok := ToDecimal(2.55)
	assert.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("2.55")))

	_, ok = ToDecimal(time.Now())
	assert.False(t, ok)
}

func TestToInt_Range(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"fraction truncates", -2.9, -2, true},
		{"lowest int64 float", -9223372036854775808.0, math.MinInt64, true},
		{"two to the 63", 9223372036854775808.0, 0, false},
		{"far above range", 1e19, 0, false},
		{"far below range", -1e19, 0, false},
		{"positive infinity", math.Inf(1), 0, false},
		{"max int64 text", "9223372036854775807", math.MaxInt64, true},
		{"huge numeric text", "1e19", 0, false},
		{"not a number", "abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToInt(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
