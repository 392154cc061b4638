package table

import "fmt"

// Group is one key tuple of a group-by together with the rows that carry it.
type Group struct {
	Key  []any
	Rows []int
}

// GroupBy maps every distinct key tuple of the given columns to its row indices.
// Groups are returned in order of first appearance. Rows with a null in any key
// column belong to no group.
func (t *Table) GroupBy(keys ...string) ([]Group, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("group by needs at least one column")
	}
	if missing := t.MissingColumns(keys...); len(missing) > 0 {
		return nil, fmt.Errorf("group by: missing columns %v", missing)
	}

	index := make(map[string]int)
	var groups []Group
	for i := 0; i < t.Len(); i++ {
		tuple := make([]any, len(keys))
		null := false
		for j, name := range keys {
			tuple[j] = t.cols[name][i]
			if tuple[j] == nil {
				null = true
				break
			}
		}
		if null {
			continue
		}
		k := t.KeyOf(i, keys...)
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, Group{Key: tuple})
		}
		groups[pos].Rows = append(groups[pos].Rows, i)
	}
	return groups, nil
}

// CountDistinct returns the number of distinct non-null values of a column among rows.
func (t *Table) CountDistinct(name string, rows []int) int {
	seen := make(map[string]struct{}, len(rows))
	for _, i := range rows {
		v := t.Value(name, i)
		if v == nil {
			continue
		}
		seen[cellKey(v)] = struct{}{}
	}
	return len(seen)
}
