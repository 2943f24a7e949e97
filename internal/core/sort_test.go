package core

import (
	"slices"
	"testing"
)

func TestSort_ByColumn(t *testing.T) {
	tbl := mustParse(t, "a,b\n1,2\n3,x\n5,4\n")

	tests := []struct {
		name      string
		spec      SortSpec
		wantIndex []int
	}{
		{
			name:      "ascending",
			spec:      SortSpec{Mode: SortByColumn, Column: "a", Ascending: true},
			wantIndex: []int{0, 1, 2},
		},
		{
			name:      "descending",
			spec:      SortSpec{Mode: SortByColumn, Column: "a", Ascending: false},
			wantIndex: []int{2, 1, 0},
		},
		{
			name:      "non-numeric cell sorts last ascending",
			spec:      SortSpec{Mode: SortByColumn, Column: "b", Ascending: true},
			wantIndex: []int{0, 2, 1},
		},
		{
			name:      "non-numeric cell sorts last descending",
			spec:      SortSpec{Mode: SortByColumn, Column: "b", Ascending: false},
			wantIndex: []int{2, 0, 1},
		},
		{
			name:      "unknown column is a no-op",
			spec:      SortSpec{Mode: SortByColumn, Column: "nope", Ascending: false},
			wantIndex: []int{0, 1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sort(tbl, tt.spec)
			if !slices.Equal(got.Index, tt.wantIndex) {
				t.Errorf("Index = %v, want %v", got.Index, tt.wantIndex)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestSort_DescendingReordersRows(t *testing.T) {
	tbl := mustParse(t, "a,b\n1,2\n3,x\n5,4\n")

	got := Sort(tbl, SortSpec{Column: "a"})

	if a := columnTexts(t, got, "a"); !slices.Equal(a, []string{"5", "3", "1"}) {
		t.Errorf("a = %v, want [5 3 1]", a)
	}
	if b := columnTexts(t, got, "b"); !slices.Equal(b, []string{"4", "x", "2"}) {
		t.Errorf("b = %v, want [4 x 2]", b)
	}
}

func TestSort_MissingAlwaysLast(t *testing.T) {
	// A blank line would be skipped by the reader, so mark the gap with NA.
	tbl := mustParse(t, "v\n3\nNA\n1\n")

	asc := Sort(tbl, SortSpec{Column: "v", Ascending: true})
	if got := columnTexts(t, asc, "v"); !slices.Equal(got, []string{"1", "3", ""}) {
		t.Errorf("ascending = %q, want [1 3 \"\"]", got)
	}

	desc := Sort(tbl, SortSpec{Column: "v", Ascending: false})
	if got := columnTexts(t, desc, "v"); !slices.Equal(got, []string{"3", "1", ""}) {
		t.Errorf("descending = %q, want [3 1 \"\"]", got)
	}
}

func TestSort_Stable(t *testing.T) {
	tbl := mustParse(t, "k,id\n2,a\n1,b\n2,c\n1,d\nx,e\ny,f\n")

	asc := Sort(tbl, SortSpec{Column: "k", Ascending: true})
	if got := columnTexts(t, asc, "id"); !slices.Equal(got, []string{"b", "d", "a", "c", "e", "f"}) {
		t.Errorf("ascending ids = %v", got)
	}

	desc := Sort(tbl, SortSpec{Column: "k", Ascending: false})
	if got := columnTexts(t, desc, "id"); !slices.Equal(got, []string{"a", "c", "b", "d", "e", "f"}) {
		t.Errorf("descending ids = %v", got)
	}
}

func TestSort_Idempotent(t *testing.T) {
	tbl := mustParse(t, "k,v\n3,a\n1,b\n,c\n3,d\n2,e\n")

	for _, spec := range []SortSpec{
		{Mode: SortByColumn, Column: "k", Ascending: true},
		{Mode: SortByColumn, Column: "k", Ascending: false},
		{Mode: SortByRowAverage, Ascending: true},
		{Mode: SortByRowMax, Ascending: false},
	} {
		t.Run(spec.Mode.String(), func(t *testing.T) {
			once := Sort(tbl, spec)
			twice := Sort(once, spec)
			if !once.Equal(twice) {
				t.Errorf("Sort is not idempotent: %v then %v", once.Index, twice.Index)
			}
		})
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	tbl := mustParse(t, "a\n3\n1\n2\n")
	before := tbl.Clone()

	_ = Sort(tbl, SortSpec{Column: "a", Ascending: true})

	if !tbl.Equal(before) {
		t.Error("Sort modified its input table")
	}
}

func TestSort_RowAggregates(t *testing.T) {
	// Row averages: r0 = 5, r1 = 2, r2 = 6 (x ignored), r3 = missing.
	// Row maxima:   r0 = 9, r1 = 3, r2 = 6,             r3 = missing.
	tbl := mustParse(t, "name,p,q\nr0,1,9\nr1,1,3\nr2,6,x\nr3,,\n")

	tests := []struct {
		name      string
		spec      SortSpec
		wantIndex []int
	}{
		{name: "average ascending", spec: SortSpec{Mode: SortByRowAverage, Ascending: true}, wantIndex: []int{1, 0, 2, 3}},
		{name: "average descending", spec: SortSpec{Mode: SortByRowAverage}, wantIndex: []int{2, 0, 1, 3}},
		{name: "max ascending", spec: SortSpec{Mode: SortByRowMax, Ascending: true}, wantIndex: []int{1, 2, 0, 3}},
		{name: "max descending", spec: SortSpec{Mode: SortByRowMax}, wantIndex: []int{0, 2, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sort(tbl, tt.spec)
			if !slices.Equal(got.Index, tt.wantIndex) {
				t.Errorf("Index = %v, want %v", got.Index, tt.wantIndex)
			}
			if got.ColumnCount() != tbl.ColumnCount() {
				t.Errorf("ColumnCount = %d, want %d (derived key must not be stored)", got.ColumnCount(), tbl.ColumnCount())
			}
		})
	}
}

func TestSort_RowAggregateWithoutNumericColumns(t *testing.T) {
	tbl := mustParse(t, "a,b\nx,y\nz,w\n")

	got := Sort(tbl, SortSpec{Mode: SortByRowMax, Ascending: true})
	if !got.Equal(tbl) {
		t.Errorf("expected unchanged table, got index %v", got.Index)
	}
}

func TestParseSortMode(t *testing.T) {
	tests := []struct {
		in   string
		want SortMode
	}{
		{"column", SortByColumn},
		{"", SortByColumn},
		{"bogus", SortByColumn},
		{"row_average", SortByRowAverage},
		{"ROW_AVG", SortByRowAverage},
		{"row_max", SortByRowMax},
	}
	for _, tt := range tests {
		if got := ParseSortMode(tt.in); got != tt.want {
			t.Errorf("ParseSortMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
