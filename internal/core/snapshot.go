package core

import (
	"encoding/json"
	"fmt"
)

// snapshotVersion is bumped whenever the encoded layout changes.
const snapshotVersion = 1

// snapshot is the persisted form of a Table. Unlike CSV it keeps the row
// index, so a stored table loads back exactly as it was saved.
type snapshot struct {
	Version int         `json:"version"`
	Columns []string    `json:"columns"`
	Index   []int       `json:"index"`
	Rows    [][]*string `json:"rows"` // nil entries are missing cells
}

// EncodeSnapshot serializes t for a table store.
func EncodeSnapshot(t *Table) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	s := snapshot{
		Version: snapshotVersion,
		Columns: t.Names(),
		Index:   t.Index,
		Rows:    make([][]*string, t.RowCount()),
	}
	for i := range s.Rows {
		row := make([]*string, len(t.Columns))
		for j, c := range t.Columns {
			if cell := c.Cells[i]; !cell.IsMissing() {
				text := cell.Text
				row[j] = &text
			}
		}
		s.Rows[i] = row
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot restores a table written by EncodeSnapshot.
func DecodeSnapshot(data []byte) (*Table, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("decode snapshot: unsupported version %d", s.Version)
	}
	if len(s.Index) != len(s.Rows) {
		return nil, fmt.Errorf("decode snapshot: %d index labels for %d rows", len(s.Index), len(s.Rows))
	}

	t := &Table{
		Columns: make([]Column, len(s.Columns)),
		Index:   s.Index,
	}
	for j, name := range s.Columns {
		t.Columns[j] = Column{Name: name, Cells: make([]Cell, len(s.Rows))}
	}
	for i, row := range s.Rows {
		if len(row) != len(s.Columns) {
			return nil, fmt.Errorf("decode snapshot: row %d has %d cells, want %d", i, len(row), len(s.Columns))
		}
		for j, text := range row {
			if text != nil {
				t.Columns[j].Cells[i] = NewCell(*text)
			}
		}
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return t, nil
}
