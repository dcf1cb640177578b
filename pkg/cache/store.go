package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates no live entry exists for the key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the shared cache behind the cache-aside resolver. Implementations
// must treat Put as an upsert: a new entry for an existing key supersedes
// the prior one. Stores are not transactional; two resolutions racing on
// one key may interleave, with the last completed write winning. That is
// acceptable because entries are idempotent snapshots.
type Store interface {
	// Get returns the live (unexpired) entry for key, or ErrCacheMiss
	// if none exists. Expired entries are treated as absent, never
	// returned.
	Get(ctx context.Context, key Key) (*Entry, error)

	// Put stores an entry under key, replacing any prior entry.
	Put(ctx context.Context, key Key, entry *Entry) error
}
