package store

import (
	"context"
	"sync"

	"github.com/JonMunkholm/tabular/internal/core"
)

// Memory keeps one table per session in process memory. Tables are cloned
// on the way in and out so callers never share cells with the store.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*core.Table
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*core.Table)}
}

func (m *Memory) Load(ctx context.Context, id string) (*core.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	t, ok := m.tables[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (m *Memory) Save(ctx context.Context, id string, t *core.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return storageErr("memory", "save", err)
	}
	c := t.Clone()
	m.mu.Lock()
	m.tables[id] = c
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.tables, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of sessions holding a table.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables)
}

func (m *Memory) Close() error { return nil }

// Single is a store with one slot shared by all sessions: the last upload
// from anyone is what everyone sees.
type Single struct {
	mu    sync.RWMutex
	table *core.Table
}

// NewSingle returns an empty single-slot store.
func NewSingle() *Single {
	return &Single{}
}

func (s *Single) Load(ctx context.Context, _ string) (*core.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, ErrNotFound
	}
	return s.table.Clone(), nil
}

func (s *Single) Save(ctx context.Context, _ string, t *core.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return storageErr("single", "save", err)
	}
	c := t.Clone()
	s.mu.Lock()
	s.table = c
	s.mu.Unlock()
	return nil
}

func (s *Single) Clear(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.table = nil
	s.mu.Unlock()
	return nil
}

// Key maps every session to the one shared slot.
func (s *Single) Key(string) string { return "single" }

func (s *Single) Close() error { return nil }
