package core

import (
	"encoding/json"
	"math"
	"slices"
	"testing"
)

func TestCorrelate_Symmetric(t *testing.T) {
	tbl := mustParse(t, "a,b,c,d\n1,2,9,x\n2,4,7,y\n3,5,8,z\n4,4,1,w\n5,NA,3,v\n")

	m := Correlate(tbl)

	if !slices.Equal(m.Columns, []string{"a", "b", "c"}) {
		t.Fatalf("Columns = %v, want [a b c]", m.Columns)
	}
	for i := range m.Columns {
		for j := range m.Columns {
			a, b := m.Values[i][j], m.Values[j][i]
			if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				t.Errorf("corr[%d][%d] = %v but corr[%d][%d] = %v", i, j, a, j, i, b)
			}
		}
	}
}

func TestCorrelate_KnownValues(t *testing.T) {
	tbl := mustParse(t, "x,up,down,flat\n1,2,10,5\n2,4,8,5\n3,6,6,5\n4,8,4,5\n")

	m := Correlate(tbl)

	tests := []struct {
		a, b    string
		want    float64
		defined bool
	}{
		{"x", "up", 1, true},
		{"x", "down", -1, true},
		{"up", "down", -1, true},
		{"x", "x", 1, true},
		{"x", "flat", 0, false},
		{"flat", "flat", 0, false},
	}
	for _, tt := range tests {
		got, ok := m.At(tt.a, tt.b)
		if ok != tt.defined {
			t.Errorf("At(%s,%s) defined = %v, want %v", tt.a, tt.b, ok, tt.defined)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("At(%s,%s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCorrelate_PairwiseComplete(t *testing.T) {
	// Row 3 has no b, so a/b correlate over rows 0-2 only (perfectly),
	// while a/c use all four rows.
	tbl := mustParse(t, "a,b,c\n1,1,1\n2,2,2\n3,3,3\n4,,-10\n")

	m := Correlate(tbl)

	if got, _ := m.At("a", "b"); got != 1 {
		t.Errorf("corr(a,b) = %v, want 1", got)
	}
	if got, _ := m.At("a", "c"); got >= 0 {
		t.Errorf("corr(a,c) = %v, want negative", got)
	}
}

func TestCorrelate_Rounded(t *testing.T) {
	tbl := mustParse(t, "a,b\n1,2\n2,1\n3,4\n4,3\n")

	got, ok := Correlate(tbl).At("a", "b")
	if !ok {
		t.Fatal("corr(a,b) undefined")
	}
	if got != 0.6 {
		t.Errorf("corr(a,b) = %v, want 0.6", got)
	}
}

func TestCorrelationMatrix_MarshalJSON(t *testing.T) {
	tbl := mustParse(t, "a,flat\n1,5\n2,5\n")

	data, err := json.Marshal(Correlate(tbl))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := string(data)
	want := `{"columns":["a","flat"],"values":[[1,null],[null,null]]}`
	if got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}

func TestCorrelate_LargeValues(t *testing.T) {
	tbl := mustParse(t, "a,b,c\n1e200,1e200,1\n2e200,2e200,2\n3e200,3.5e200,3\n")

	m := Correlate(tbl)

	tests := []struct {
		a, b string
		want float64
	}{
		{"a", "b", 0.99},
		{"a", "c", 1},
		{"b", "b", 1},
	}
	for _, tt := range tests {
		got, ok := m.At(tt.a, tt.b)
		if !ok || got != tt.want {
			t.Errorf("At(%s,%s) = %v (defined %v), want %v", tt.a, tt.b, got, ok, tt.want)
		}
	}
	if _, err := json.Marshal(m); err != nil {
		t.Errorf("Marshal() error = %v", err)
	}
}
