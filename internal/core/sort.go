package core

import (
	"slices"
	"strings"
)

// SortMode selects what a sort is keyed on.
type SortMode int

const (
	// SortByColumn orders rows by one column's coerced value.
	SortByColumn SortMode = iota
	// SortByRowAverage orders rows by the mean of their numeric cells.
	SortByRowAverage
	// SortByRowMax orders rows by the largest of their numeric cells.
	SortByRowMax
)

func (m SortMode) String() string {
	switch m {
	case SortByRowAverage:
		return "row_average"
	case SortByRowMax:
		return "row_max"
	default:
		return "column"
	}
}

// ParseSortMode maps a form value to a SortMode. Unknown values select
// SortByColumn.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "row_average", "row_avg", "average", "avg":
		return SortByRowAverage
	case "row_max", "max":
		return SortByRowMax
	default:
		return SortByColumn
	}
}

// SortSpec describes a single sort request.
type SortSpec struct {
	Mode      SortMode
	Column    string // used by SortByColumn only
	Ascending bool
}

// Sort returns t reordered according to spec. The input table is not
// modified. Rows with equal keys keep their relative order, and rows whose
// key is missing always come last, whichever the direction.
//
// An unknown column, or a row-aggregate sort on a table without numeric
// columns, returns t unchanged.
func Sort(t *Table, spec SortSpec) *Table {
	keys, ok := sortKeys(t, spec)
	if !ok {
		return t
	}

	order := make([]int, t.RowCount())
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		ka, kb := keys[a], keys[b]
		switch {
		case !ka.Valid && !kb.Valid:
			return 0
		case !ka.Valid:
			return 1
		case !kb.Valid:
			return -1
		}
		c := compareFloat(ka.Value, kb.Value)
		if !spec.Ascending {
			c = -c
		}
		return c
	})

	return t.permute(order)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// sortKeys computes one key per row. The boolean is false when the sort
// is a no-op.
func sortKeys(t *Table, spec SortSpec) ([]Number, bool) {
	switch spec.Mode {
	case SortByRowAverage, SortByRowMax:
		return rowAggregate(t, spec.Mode)
	default:
		col, ok := t.Column(spec.Column)
		if !ok {
			return nil, false
		}
		return Coerce(*col), true
	}
}

// rowAggregate computes the per-row mean or max across every numeric
// column. Missing cells are skipped; a row with no values gets a missing key.
func rowAggregate(t *Table, mode SortMode) ([]Number, bool) {
	var cols [][]Number
	for _, c := range t.Columns {
		nums := Coerce(c)
		if len(validValues(nums)) > 0 {
			cols = append(cols, nums)
		}
	}
	if len(cols) == 0 {
		return nil, false
	}

	keys := make([]Number, t.RowCount())
	for i := range keys {
		var sum float64
		var n int
		var best Number
		for _, nums := range cols {
			v := nums[i]
			if !v.Valid {
				continue
			}
			sum += v.Value
			n++
			if !best.Valid || v.Value > best.Value {
				best = v
			}
		}
		if n == 0 {
			continue
		}
		if mode == SortByRowMax {
			keys[i] = best
		} else {
			keys[i] = Number{Value: sum / float64(n), Valid: true}
		}
	}
	return keys, true
}
