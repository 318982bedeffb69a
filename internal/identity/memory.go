// internal/identity/memory.go
package identity

import (
	"context"
	"sync"
)

// MemoryStore keeps identity records in process memory. It is the default
// store: records die with the process, matching a session's lifetime.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, tableID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[tableID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.TableID] = rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, tableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, tableID)
	return nil
}
