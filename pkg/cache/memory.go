package cache

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store for tests and single-node
// deployments. Stale entries are not reaped; they are ignored by Get and
// overwritten by the next refresh, matching the persistent backends.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
	}
}

// Get returns the live entry for key, or ErrCacheMiss.
func (s *MemoryStore) Get(_ context.Context, key Key) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key.String()]
	if !ok || entry.IsExpired() {
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()
	return entry, nil
}

// Put upserts an entry under key.
func (s *MemoryStore) Put(_ context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return ErrInvalidEntry
	}

	s.mu.Lock()
	s.entries[key.String()] = entry
	s.mu.Unlock()

	CacheWrites.WithLabelValues("memory").Inc()
	return nil
}

// Len returns the number of stored entries, live or stale.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
