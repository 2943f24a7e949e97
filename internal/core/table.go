package core

import (
	"fmt"
	"slices"
	"strings"
)

// Kind classifies a cell as it was read from the upload.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumeric
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNumeric:
		return "numeric"
	default:
		return "text"
	}
}

// naTokens are the cell texts treated as absent values when a CSV is read.
// Matches the default NA set of common dataframe readers.
var naTokens = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true,
	"N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// Cell is a single table value.
//
// Text always holds the text as uploaded (empty for missing cells) so that
// serialization reproduces the original values exactly. Num is only
// meaningful when Kind is KindNumeric.
type Cell struct {
	Kind Kind
	Text string
	Num  float64
}

// NewCell classifies raw cell text.
func NewCell(raw string) Cell {
	if raw == "" || naTokens[raw] {
		return Cell{Kind: KindMissing}
	}
	if n := CoerceText(raw); n.Valid {
		return Cell{Kind: KindNumeric, Text: raw, Num: n.Value}
	}
	return Cell{Kind: KindText, Text: raw}
}

// IsMissing reports whether the cell holds no value.
func (c Cell) IsMissing() bool { return c.Kind == KindMissing }

func (c Cell) String() string { return c.Text }

// Column is a named, ordered sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// Table is an immutable-by-convention set of equally long columns.
//
// Index carries the original row label of every row (its position in the
// upload) and follows the rows through sorts. It is never serialized to CSV.
type Table struct {
	Columns []Column
	Index   []int
}

// NewTable builds a table from a header and row-major raw records.
// Records shorter than the header are padded with missing cells; longer
// records are an error.
func NewTable(header []string, records [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrNoColumns
	}

	names := uniqueNames(header)
	t := &Table{
		Columns: make([]Column, len(names)),
		Index:   make([]int, len(records)),
	}
	for j, name := range names {
		t.Columns[j] = Column{Name: name, Cells: make([]Cell, len(records))}
	}

	for i, rec := range records {
		if len(rec) > len(names) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i+1, len(names), len(rec))
		}
		for j := range names {
			var raw string
			if j < len(rec) {
				raw = rec[j]
			}
			t.Columns[j].Cells[i] = NewCell(raw)
		}
		t.Index[i] = i
	}

	return t, nil
}

// uniqueNames fills in blank header names and de-duplicates repeated ones
// by suffixing ".1", ".2", ... in order of appearance.
func uniqueNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.Index)
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	return len(t.Columns)
}

// Names returns the column names in declared order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Cells[i]
	}
	return row
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: make([]Column, len(t.Columns)),
		Index:   slices.Clone(t.Index),
	}
	for j, c := range t.Columns {
		out.Columns[j] = Column{Name: c.Name, Cells: slices.Clone(c.Cells)}
	}
	return out
}

// Equal reports whether two tables have the same columns, row labels and
// cell values.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !slices.Equal(t.Index, o.Index) || len(t.Columns) != len(o.Columns) {
		return false
	}
	for j := range t.Columns {
		if t.Columns[j].Name != o.Columns[j].Name {
			return false
		}
		if !slices.Equal(t.Columns[j].Cells, o.Columns[j].Cells) {
			return false
		}
	}
	return true
}

// Validate checks the uniform-row-count and unique-name invariants.
func (t *Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Name] {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Cells) != len(t.Index) {
			return fmt.Errorf("column %q has %d cells, want %d", c.Name, len(c.Cells), len(t.Index))
		}
	}
	return nil
}

// permute returns a new table whose row i is row order[i] of t.
func (t *Table) permute(order []int) *Table {
	out := &Table{
		Columns: make([]Column, len(t.Columns)),
		Index:   make([]int, len(order)),
	}
	for i, src := range order {
		out.Index[i] = t.Index[src]
	}
	for j, c := range t.Columns {
		cells := make([]Cell, len(order))
		for i, src := range order {
			cells[i] = c.Cells[src]
		}
		out.Columns[j] = Column{Name: c.Name, Cells: cells}
	}
	return out
}
