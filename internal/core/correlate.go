package core

import (
	"bytes"
	"encoding/json"
	"math"
)

// CorrelationMatrix is a symmetric Pearson correlation matrix over the
// numeric columns of a table. Values are rounded to two decimals; an
// undefined coefficient is NaN and encodes as JSON null.
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// At returns the coefficient for a column pair and whether it is defined.
func (m *CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := m.indexOf(a), m.indexOf(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	v := m.Values[i][j]
	return v, !math.IsNaN(v)
}

func (m *CorrelationMatrix) indexOf(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// correlationDoc is the encoded form of a matrix; undefined coefficients
// become null.
type correlationDoc struct {
	Columns []string     `json:"columns" yaml:"columns"`
	Values  [][]*float64 `json:"values" yaml:"values"`
}

func (m *CorrelationMatrix) doc() correlationDoc {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			if !math.IsNaN(v) {
				v := v
				values[i][j] = &v
			}
		}
	}
	return correlationDoc{Columns: m.Columns, Values: values}
}

// MarshalJSON encodes undefined coefficients as null.
func (m *CorrelationMatrix) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	err := json.NewEncoder(&buf).Encode(m.doc())
	return bytes.TrimRight(buf.Bytes(), "\n"), err
}

// MarshalYAML encodes undefined coefficients as null.
func (m *CorrelationMatrix) MarshalYAML() (any, error) {
	return m.doc(), nil
}

// Correlate computes pairwise Pearson correlations between all columns
// that have at least one numeric value. Each pair uses only the rows where
// both columns have a value.
func Correlate(t *Table) *CorrelationMatrix {
	var names []string
	var cols [][]Number
	for _, c := range t.Columns {
		nums := Coerce(c)
		if len(validValues(nums)) > 0 {
			names = append(names, c.Name)
			cols = append(cols, nums)
		}
	}

	m := &CorrelationMatrix{Columns: names, Values: make([][]float64, len(names))}
	for i := range m.Values {
		m.Values[i] = make([]float64, len(names))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := round2(pearson(cols[i], cols[j]))
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

// pearson returns the correlation of the pairwise-complete observations of
// x and y, or NaN when fewer than two pairs exist or either side is constant.
// Deviations are scaled to at most 1 before squaring; r is scale invariant
// and large finite inputs would otherwise overflow.
func pearson(x, y []Number) float64 {
	var xs, ys []float64
	for i := range x {
		if x[i].Valid && y[i].Valid {
			xs = append(xs, x[i].Value)
			ys = append(ys, y[i].Value)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}

	meanX, meanY := mean(xs), mean(ys)
	var scaleX, scaleY float64
	for i := range xs {
		scaleX = math.Max(scaleX, math.Abs(xs[i]-meanX))
		scaleY = math.Max(scaleY, math.Abs(ys[i]-meanY))
	}
	if scaleX == 0 || scaleY == 0 || math.IsInf(scaleX, 0) || math.IsInf(scaleY, 0) {
		return math.NaN()
	}

	var sxx, syy, sxy float64
	for i := range xs {
		dx, dy := (xs[i]-meanX)/scaleX, (ys[i]-meanY)/scaleY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	denom := math.Sqrt(sxx * syy)
	if denom == 0 {
		return math.NaN()
	}

	r := sxy / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}
