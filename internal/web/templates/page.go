// Package templates renders the HTML views of the table application.
//
// Components are written in page.templ; page_templ.go is generated from it
// with `templ generate`.
package templates

import (
	"fmt"
	"math"
	"strconv"

	"github.com/JonMunkholm/tabular/internal/core"
)

// SortForm holds the last submitted sort choices.
type SortForm struct {
	Mode   string
	Column string
	Order  string
}

// PageData is everything the index page shows.
type PageData struct {
	// Error is rendered as a banner above the page when set.
	Error *core.UserMessage

	// Table is nil before the first upload.
	Table          *core.Table
	PreviewRows    int
	NumericColumns []string
	Summary        core.Summary
	Correlation    *core.CorrelationMatrix
	Insights       core.Insights

	Sort     SortForm
	Selected []string
	Chart    core.ChartKind

	// Stats and ChartData are set after an analyze action.
	Stats     map[string]core.ColumnStats
	ChartData *core.Chart
}

var (
	chartKinds = []core.ChartKind{core.ChartBar, core.ChartLine, core.ChartPie, core.ChartScatter, core.ChartHeatmap}
	sortModes  = []core.SortMode{core.SortByColumn, core.SortByRowAverage, core.SortByRowMax}
)

type kpi struct {
	label string
	value int
}

func kpis(s core.Summary) []kpi {
	return []kpi{
		{"Rows", s.Rows},
		{"Columns", s.Columns},
		{"Numeric columns", s.NumericColumns},
		{"Missing values", s.Missing},
	}
}

func pairText(p *core.Pair) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%s & %s (%s)", p.A, p.B, formatFloat(p.Value))
}

func sortModeLabel(m core.SortMode) string {
	switch m {
	case core.SortByRowAverage:
		return "Row average"
	case core.SortByRowMax:
		return "Row maximum"
	default:
		return "Column"
	}
}

func heatColor(v float64) string {
	alpha := math.Min(math.Abs(v), 1)
	if v >= 0 {
		return fmt.Sprintf("background-color: rgba(37, 99, 235, %.2f)", alpha)
	}
	return fmt.Sprintf("background-color: rgba(220, 38, 38, %.2f)", alpha)
}

// previewCount is how many of rows are shown under limit.
func previewCount(rows, limit int) int {
	if limit > 0 && rows > limit {
		return limit
	}
	return rows
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
