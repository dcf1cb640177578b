// Package cache provides the shared cache store behind the market-data
// cache-aside resolver.
//
// Entries are keyed by (data_type, symbol) and carry the raw upstream
// payload plus write and expiry timestamps. Writes are upserts: at most
// one live entry exists per key, and a refresh supersedes the prior
// entry. Stale entries are never served; they are ignored by Get and
// eventually overwritten.
//
// # Backends
//
//   - MemoryStore: mutex-guarded map, used in tests and single-node runs.
//   - RedisStore: entries stored with native Redis TTL expiry.
//   - PostgresStore: the persistent table of record
//     (market_data_cache: data_type, symbol, data, timestamp, expiry),
//     upserting on the (data_type, symbol) unique index.
//
// # Basic Usage
//
//	store := cache.NewMemoryStore()
//
//	key := cache.Key{DataType: marketdata.TypeQuote, Symbol: "AAPL"}
//	entry, err := store.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch upstream, then:
//		entry = cache.NewEntry(key, payload, time.Now())
//		_ = store.Put(ctx, key, entry)
//	}
//
// # Consistency
//
// Stores are not transactional. Two resolutions racing on the same key
// may both fetch upstream and both write; the last completed write wins.
// Payloads are idempotent snapshots, so this is an accepted inefficiency
// rather than a correctness bug. Staleness is bounded by the per-endpoint
// TTL, not by any isolation level.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - marketdata_cache_hits_total{backend} - cache hits
//   - marketdata_cache_misses_total{backend} - cache misses
//   - marketdata_cache_writes_total{backend} - successful writes
//   - marketdata_cache_errors_total{backend, operation} - operation errors
package cache
