package sheet

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and dry runs. Absent tabs
// read as empty, matching the contract of the real backends.
type MemoryStore struct {
	mu   sync.Mutex
	tabs map[string]*Table
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{tabs: make(map[string]*Table)}
}

// Seed replaces a tab's contents without going through WriteAll, for test
// setup.
func (s *MemoryStore) Seed(tab string, t *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = t.Clone()
}

func (s *MemoryStore) ReadAll(_ context.Context, tab string) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[tab]
	if !ok {
		return &Table{}, nil
	}
	return t.Clone(), nil
}

func (s *MemoryStore) WriteAll(_ context.Context, tab string, t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = t.Clone()
	return nil
}

func (s *MemoryStore) Append(_ context.Context, tab string, t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tabs[tab]
	if !ok || len(existing.Header) == 0 {
		s.tabs[tab] = t.Clone()
		return nil
	}
	aligned := t.AlignTo(existing.Header)
	existing.Rows = append(existing.Rows, aligned.Rows...)
	return nil
}

func (s *MemoryStore) UpdateCells(_ context.Context, tab string, updates []CellUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[tab]
	if !ok {
		return ErrTabNotFound
	}
	for _, u := range updates {
		if u.Row < 1 || u.Row > len(t.Rows) {
			continue
		}
		t.Rows[u.Row-1][u.Column] = u.Value
	}
	return nil
}

func (s *MemoryStore) EnsureColumn(_ context.Context, tab string, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[tab]
	if !ok {
		t = &Table{}
		s.tabs[tab] = t
	}
	if idx := t.ColumnIndex(name); idx >= 0 {
		return idx, nil
	}
	t.Header = append(t.Header, name)
	return len(t.Header) - 1, nil
}

func (s *MemoryStore) Close() error { return nil }
