// internal/store/memory.go
//
// In-memory implementation of Store.
// Characteristics:
//   - Records keyed by ID in a map, guarded by an RWMutex.
//   - Records are copied on the way in and out so callers never share them.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory map-based Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex      // guards sessions
	sessions map[string]Record // keyed by Record.ID
	now      func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Record), now: time.Now}
}

func (m *MemoryStore) Save(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	m.sessions[r.ID] = *r
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.sessions[id]; ok {
		return &r, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.sessions {
		if r.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }
