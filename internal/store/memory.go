package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record

	// Fail, when set, is returned by every write. ListErr is returned by
	// ListInstanceIDs.
	Fail    error
	ListErr error

	writes int
}

// NewMemoryStore returns an empty MemoryStore, optionally seeded with IDs in
// the Authenticated state.
func NewMemoryStore(ids ...string) *MemoryStore {
	m := &MemoryStore{records: make(map[string]Record)}
	for _, id := range ids {
		m.records[id] = Record{InstanceID: id, Status: StatusAuthenticated, UpdatedAt: time.Now()}
	}
	return m
}

// ListInstanceIDs implements Store.
func (m *MemoryStore) ListInstanceIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// UpsertStatus implements Store.
func (m *MemoryStore) UpsertStatus(ctx context.Context, instanceID string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.Fail != nil {
		return m.Fail
	}
	m.records[instanceID] = Record{InstanceID: instanceID, Status: status, UpdatedAt: time.Now()}
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, instanceID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[instanceID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.Fail != nil {
		return m.Fail
	}
	delete(m.records, instanceID)
	return nil
}

// Writes reports how many write calls were made, including failed ones.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
