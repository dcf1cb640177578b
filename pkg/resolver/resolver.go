// Package resolver implements the cache-aside policy: serve live cached
// payloads, refresh from upstream on miss, expiry, or explicit bypass.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/wealthdesk/market-proxy/pkg/cache"
	"github.com/wealthdesk/market-proxy/pkg/logging"
	"github.com/wealthdesk/market-proxy/pkg/marketdata"
)

// Fetcher fetches a logical request from the upstream provider.
type Fetcher interface {
	Fetch(ctx context.Context, dt marketdata.DataType, params marketdata.Params) (json.RawMessage, error)
}

// Resolver decides whether to serve from the cache store or refresh from
// upstream, keeping the store eventually consistent with upstream truth.
type Resolver struct {
	store    cache.Store
	upstream Fetcher
	logger   zerolog.Logger
}

// New creates a resolver over the given store and upstream fetcher.
func New(store cache.Store, upstream Fetcher) *Resolver {
	return &Resolver{
		store:    store,
		upstream: upstream,
		logger:   logging.NewLogger("resolver"),
	}
}

// Resolve returns the payload for one logical request.
//
// Unless the request asks for a cache bypass, a live cached entry is
// returned as-is with no upstream call. Otherwise the payload is fetched
// upstream and written back best-effort: a cache-write failure is logged
// and swallowed, never failing the request. An upstream failure with no
// usable entry propagates; there is no stale-on-error fallback.
func (r *Resolver) Resolve(ctx context.Context, dt marketdata.DataType, params marketdata.Params) (json.RawMessage, error) {
	if err := params.Validate(dt); err != nil {
		return nil, err
	}

	key := cache.KeyFor(dt, params)

	if !params.SkipCache {
		entry, err := r.store.Get(ctx, key)
		if err == nil {
			r.logger.Debug().
				Str("cache_key", key.String()).
				Dur("ttl", entry.TTL()).
				Msg("Cache hit")
			return entry.Payload, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			// A broken store degrades to a refresh, not a failure.
			r.logger.Warn().
				Err(err).
				Str("cache_key", key.String()).
				Msg("Cache get error")
		}
	}

	payload, err := r.upstream.Fetch(ctx, dt, params)
	if err != nil {
		return nil, err
	}

	entry := cache.NewEntry(key, payload, time.Now())
	if err := r.store.Put(ctx, key, entry); err != nil {
		r.logger.Warn().
			Err(err).
			Str("cache_key", key.String()).
			Msg("Cache write failed")
	} else {
		r.logger.Debug().
			Str("cache_key", key.String()).
			Dur("ttl", dt.TTL()).
			Msg("Cached upstream payload")
	}

	return payload, nil
}
