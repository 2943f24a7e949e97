package core

import (
	"slices"
	"strconv"
	"strings"
)

// ColumnStats holds descriptive statistics for one column.
// Average is rounded to two decimals; Highest and Lowest are exact.
type ColumnStats struct {
	Average float64 `json:"average" yaml:"average"`
	Highest float64 `json:"highest" yaml:"highest"`
	Lowest  float64 `json:"lowest" yaml:"lowest"`
	Count   int     `json:"count" yaml:"count"`
}

// ComputeStats returns statistics for each requested column.
// Names not present in the table are skipped, and columns with no values
// left after coercion are omitted from the result.
func ComputeStats(t *Table, columns []string) map[string]ColumnStats {
	out := make(map[string]ColumnStats, len(columns))
	for _, name := range columns {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		vals := validValues(Coerce(*col))
		if len(vals) == 0 {
			continue
		}

		out[name] = ColumnStats{
			Average: round2(mean(vals)),
			Highest: slices.Max(vals),
			Lowest:  slices.Min(vals),
			Count:   len(vals),
		}
	}
	return out
}

// Summary is the at-a-glance description of a table shown above it.
type Summary struct {
	Rows           int `json:"rows" yaml:"rows"`
	Columns        int `json:"columns" yaml:"columns"`
	NumericColumns int `json:"numeric_columns" yaml:"numeric_columns"`
	Missing        int `json:"missing" yaml:"missing"`
}

// Summarize counts rows, columns, numeric columns and missing cells.
func Summarize(t *Table) Summary {
	s := Summary{
		Rows:           t.RowCount(),
		Columns:        t.ColumnCount(),
		NumericColumns: len(NumericColumns(t)),
	}
	for _, c := range t.Columns {
		s.Missing += missingCount(c)
	}
	return s
}

func missingCount(c Column) int {
	n := 0
	for _, cell := range c.Cells {
		if cell.IsMissing() {
			n++
		}
	}
	return n
}

// ChartKind is the chart style requested for the analysis view.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartPie     ChartKind = "pie"
	ChartScatter ChartKind = "scatter"
	ChartHeatmap ChartKind = "heatmap"
)

// ParseChartKind maps a form value to a ChartKind, defaulting to bar.
func ParseChartKind(s string) ChartKind {
	switch k := ChartKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ChartLine, ChartPie, ChartScatter, ChartHeatmap:
		return k
	default:
		return ChartBar
	}
}

// Chart is the series handed to the chart renderer.
// Values is rows × Columns; missing values are plotted as 0.
type Chart struct {
	Kind    ChartKind   `json:"kind"`
	Columns []string    `json:"columns"`
	Labels  []string    `json:"labels"`
	Values  [][]float64 `json:"values"`
}

// BuildChart prepares chart series for the selected columns. Unknown
// column names are skipped. The zero-fill applies to charting only.
func BuildChart(t *Table, columns []string, kind ChartKind) Chart {
	ch := Chart{Kind: kind, Labels: make([]string, t.RowCount())}
	var coerced [][]Number
	for _, name := range columns {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		ch.Columns = append(ch.Columns, name)
		coerced = append(coerced, Coerce(*col))
	}

	ch.Values = make([][]float64, t.RowCount())
	for i := range ch.Values {
		ch.Labels[i] = strconv.Itoa(t.Index[i])
		row := make([]float64, len(coerced))
		for j, nums := range coerced {
			if nums[i].Valid {
				row[j] = nums[i].Value
			}
		}
		ch.Values[i] = row
	}
	return ch
}
