package cache

import (
	"strings"

	"github.com/wealthdesk/market-proxy/pkg/marketdata"
)

// Key uniquely identifies a cached payload. At most one live entry exists
// per key; writes upsert, they never append.
type Key struct {
	// DataType is the logical endpoint.
	DataType marketdata.DataType

	// Symbol is the per-symbol discriminator: the ticker for quote,
	// candles, and company news, the query for search, empty for
	// endpoint-wide data (general news, the index batch).
	Symbol string
}

// KeyFor computes the cache key for a resolution.
func KeyFor(dt marketdata.DataType, params marketdata.Params) Key {
	return Key{
		DataType: dt,
		Symbol:   params.CacheSymbol(dt),
	}
}

// String generates a deterministic key string.
// Format: md:<data_type>[:<symbol>]
//
// Example:
//
//	md:quote:AAPL
//	md:news
func (k Key) String() string {
	parts := []string{"md", string(k.DataType)}
	if k.Symbol != "" {
		parts = append(parts, k.Symbol)
	}
	return strings.Join(parts, ":")
}
