package core

import "math"

// ColumnCount names a column together with a count.
type ColumnCount struct {
	Column string `json:"column" yaml:"column"`
	Count  int    `json:"count" yaml:"count"`
}

// ColumnValue names a column together with a measured value.
type ColumnValue struct {
	Column string  `json:"column" yaml:"column"`
	Value  float64 `json:"value" yaml:"value"`
}

// Pair is a correlated column pair.
type Pair struct {
	A     string  `json:"a" yaml:"a"`
	B     string  `json:"b" yaml:"b"`
	Value float64 `json:"value" yaml:"value"`
}

// Insights are summary facts derived from the current table. A nil field
// means the fact is undefined for this table.
type Insights struct {
	MostMissing       *ColumnCount `json:"most_missing,omitempty" yaml:"most_missing,omitempty"`
	StrongestPositive *Pair        `json:"strongest_positive,omitempty" yaml:"strongest_positive,omitempty"`
	StrongestNegative *Pair        `json:"strongest_negative,omitempty" yaml:"strongest_negative,omitempty"`
	HighestVariance   *ColumnValue `json:"highest_variance,omitempty" yaml:"highest_variance,omitempty"`
}

// ComputeInsights derives insights from t. Nothing is cached.
func ComputeInsights(t *Table) Insights {
	var ins Insights
	ins.MostMissing = mostMissing(t)
	ins.StrongestPositive, ins.StrongestNegative = strongestPairs(Correlate(t))
	ins.HighestVariance = highestVariance(t)
	return ins
}

// mostMissing counts cells that were absent in the upload. Text that merely
// fails numeric coercion is not counted. Ties go to the first column.
func mostMissing(t *Table) *ColumnCount {
	var best *ColumnCount
	for _, c := range t.Columns {
		n := missingCount(c)
		if best == nil || n > best.Count {
			best = &ColumnCount{Column: c.Name, Count: n}
		}
	}
	return best
}

// strongestPairs searches the off-diagonal upper triangle for the largest
// and smallest defined coefficients. Both are nil when no coefficient is
// defined or every defined coefficient is zero.
func strongestPairs(m *CorrelationMatrix) (pos, neg *Pair) {
	if len(m.Columns) < 2 {
		return nil, nil
	}

	nonZero := false
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			v := m.Values[i][j]
			if math.IsNaN(v) {
				continue
			}
			if v != 0 {
				nonZero = true
			}
			if pos == nil || v > pos.Value {
				pos = &Pair{A: m.Columns[i], B: m.Columns[j], Value: v}
			}
			if neg == nil || v < neg.Value {
				neg = &Pair{A: m.Columns[i], B: m.Columns[j], Value: v}
			}
		}
	}
	if !nonZero {
		return nil, nil
	}
	return pos, neg
}

// highestVariance returns the numeric column with the largest sample
// variance. Columns with fewer than two values have no variance, and
// neither do columns whose variance overflows float64.
func highestVariance(t *Table) *ColumnValue {
	var best *ColumnValue
	for _, c := range t.Columns {
		v, ok := sampleVariance(validValues(Coerce(c)))
		if !ok {
			continue
		}
		if best == nil || v > best.Value {
			best = &ColumnValue{Column: c.Name, Value: v}
		}
	}
	return best
}

func sampleVariance(vals []float64) (float64, bool) {
	if len(vals) < 2 {
		return 0, false
	}
	m := mean(vals)
	var ss float64
	for _, v := range vals {
		d := v - m
		ss += d * d
	}
	variance := ss / float64(len(vals)-1)
	if math.IsInf(variance, 0) || math.IsNaN(variance) {
		return 0, false
	}
	return variance, true
}
