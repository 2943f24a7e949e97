package core

// convert.go provides on-demand numeric coercion of cell text.
//
// Coercion never fails a whole operation: a cell that is empty or does not
// parse as a decimal number simply becomes missing. Columns are coerced per
// operation (sort, stats, correlation) rather than once at load time, so the
// uploaded text is preserved for display and download.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a plain decimal number.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Number is a coerced cell value. Valid is false for missing values.
type Number struct {
	Value float64
	Valid bool
}

// CoerceText converts cell text to a Number.
// Returns an invalid Number if the text is empty or not a decimal number.
func CoerceText(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return Number{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return Number{}
	}
	return Number{Value: f, Valid: true}
}

// Coerce converts every cell of a column to a Number.
func Coerce(c Column) []Number {
	out := make([]Number, len(c.Cells))
	for i, cell := range c.Cells {
		if cell.IsMissing() {
			continue
		}
		out[i] = CoerceText(cell.Text)
	}
	return out
}

// validValues returns the non-missing values of a coerced column.
func validValues(nums []Number) []float64 {
	vals := make([]float64, 0, len(nums))
	for _, n := range nums {
		if n.Valid {
			vals = append(vals, n.Value)
		}
	}
	return vals
}

// NumericColumns returns, in declared order, the names of the columns that
// have at least one value surviving coercion.
func NumericColumns(t *Table) []string {
	var names []string
	for _, c := range t.Columns {
		if hasNumeric(c) {
			names = append(names, c.Name)
		}
	}
	return names
}

func hasNumeric(c Column) bool {
	for _, cell := range c.Cells {
		if !cell.IsMissing() && CoerceText(cell.Text).Valid {
			return true
		}
	}
	return false
}

// mean averages vals without summing them first, so large finite inputs
// cannot overflow.
func mean(vals []float64) float64 {
	var m float64
	for i, v := range vals {
		m += (v - m) / float64(i+1)
	}
	return m
}

// round2 rounds to two decimal places for display.
func round2(f float64) float64 {
	// Beyond 2^52 there are no fractional digits, and f*100 may overflow.
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1<<52 {
		return f
	}
	return math.Round(f*100) / 100
}
