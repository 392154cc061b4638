// Package table implements the in-memory columnar table the pipeline layers
// pass between each other.
//
// A Table maps column names to same-length slices of cell values. Cells are
// plain Go values (string, float64, int64, decimal.Decimal, time.Time) and nil
// marks a null. Group-by builds a mapping from key tuple to row indices in
// first-appearance order, skipping rows with a null key.
package table
