package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/tabular/internal/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func mustParse(t *testing.T, s string) *core.Table {
	t.Helper()
	tbl, err := core.Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return tbl
}

func TestDataTable_EscapesCells(t *testing.T) {
	tbl := mustParse(t, "<b>name</b>,v\n<script>alert(1)</script>,1\n")

	out := render(t, DataTable(tbl, 0))

	if strings.Contains(out, "<script>") || strings.Contains(out, "<b>name") {
		t.Errorf("unescaped markup in output: %s", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Errorf("escaped cell missing: %s", out)
	}
}

func TestDataTable_PreviewLimit(t *testing.T) {
	tbl := mustParse(t, "v\n1\n2\n3\n")

	out := render(t, DataTable(tbl, 2))

	if !strings.Contains(out, "Showing first 2 of 3 rows.") {
		t.Errorf("missing preview note: %s", out)
	}
	if strings.Count(out, "<tr>") != 3 {
		t.Errorf("rendered %d rows, want header + 2", strings.Count(out, "<tr>"))
	}
}

func TestDataTable_MissingCells(t *testing.T) {
	out := render(t, DataTable(mustParse(t, "a,b\n1,NA\n"), 0))

	if !strings.Contains(out, `<td class="missing"></td>`) {
		t.Errorf("missing cell not marked: %s", out)
	}
}

func TestHeatmap(t *testing.T) {
	m := core.Correlate(mustParse(t, "x,down,flat\n1,3,5\n2,2,5\n3,1,5\n"))

	out := render(t, Heatmap(m))

	if !strings.Contains(out, "rgba(37, 99, 235, 1.00)") {
		t.Error("positive diagonal not coloured blue")
	}
	if !strings.Contains(out, "rgba(220, 38, 38, 1.00)") {
		t.Error("negative pair not coloured red")
	}
	if !strings.Contains(out, `<td class="undefined"></td>`) {
		t.Error("undefined cell not blank")
	}
}

func TestErrorBanner(t *testing.T) {
	out := render(t, ErrorBanner(core.MapError(core.ErrNoTable)))

	for _, want := range []string{`role="alert"`, "No table has been uploaded yet", "TBL001"} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q: %s", want, out)
		}
	}
}

func TestPage_WithAnalysis(t *testing.T) {
	tbl := mustParse(t, "a,b\n1,2\n3,x\n5,4\n")
	chart := core.BuildChart(tbl, []string{"a"}, core.ChartBar)

	out := render(t, Page(PageData{
		Table:          tbl,
		NumericColumns: core.NumericColumns(tbl),
		Summary:        core.Summarize(tbl),
		Correlation:    core.Correlate(tbl),
		Insights:       core.ComputeInsights(tbl),
		Selected:       []string{"a"},
		Chart:          core.ChartBar,
		Stats:          core.ComputeStats(tbl, []string{"a"}),
		ChartData:      &chart,
		Sort:           SortForm{Mode: "column", Column: "a", Order: "asc"},
	}))

	for _, want := range []string{
		`<input type="checkbox" name="columns" value="a" checked>`,
		`<option value="asc" selected>`,
		"<h2>Statistics</h2>",
		`<script id="chart-data" type="application/json">`,
		"<h2>Correlation</h2>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestErrorBanner_ActionAndCode(t *testing.T) {
	out := render(t, ErrorBanner(core.UserMessage{Message: "Bad <file>", Action: "Try again.", Code: "FILE002"}))

	want := `<div class="banner error" role="alert"><strong>Bad &lt;file&gt;</strong> <span>Try again.</span><code>FILE002</code></div>`
	if out != want {
		t.Errorf("banner =\n%s\nwant\n%s", out, want)
	}
}

func TestSortForm_Selection(t *testing.T) {
	out := render(t, sortForm([]string{"a", "b"}, SortForm{Mode: "row_max", Column: "b"}))

	for _, want := range []string{
		`<option value="row_max" selected>Row maximum</option>`,
		`<option value="b" selected>b</option>`,
		`<option value="a">a</option>`,
		`<option value="desc" selected>Descending</option>`,
		`<option value="asc">Ascending</option>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("sort form missing %q: %s", want, out)
		}
	}
}
