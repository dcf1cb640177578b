// Package marketdata defines the endpoint taxonomy, request parameters,
// and payload shapes shared by the proxy server, the cache-aside resolver,
// and the client SDK.
package marketdata

import (
	"fmt"
	"time"
)

// DataType identifies a logical upstream endpoint.
type DataType string

const (
	// TypeQuote is a real-time quote for a single symbol.
	TypeQuote DataType = "quote"

	// TypeSearch is a symbol lookup by free-text query.
	TypeSearch DataType = "search"

	// TypeNews is company news (with symbol) or general market news (without).
	TypeNews DataType = "news"

	// TypeIndices is a fan-out quote batch over a list of index symbols.
	TypeIndices DataType = "indices"

	// TypeCandles is historical OHLCV data for a single symbol.
	TypeCandles DataType = "candles"
)

// DataTypes lists all supported endpoint kinds.
var DataTypes = []DataType{TypeQuote, TypeSearch, TypeNews, TypeIndices, TypeCandles}

// ParseDataType converts an endpoint string from the wire into a DataType.
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case TypeQuote, TypeSearch, TypeNews, TypeIndices, TypeCandles:
		return DataType(s), nil
	default:
		return "", fmt.Errorf("unknown endpoint %q", s)
	}
}

// TTL returns how long a cached payload for this endpoint stays fresh.
// Quote data moves fast, search results barely move at all.
func (d DataType) TTL() time.Duration {
	switch d {
	case TypeQuote, TypeIndices:
		return 60 * time.Second
	case TypeNews, TypeCandles:
		return 5 * time.Minute
	case TypeSearch:
		return time.Hour
	default:
		return 60 * time.Second
	}
}

// DefaultIndices are the index symbols fetched when an indices request
// carries no explicit symbol list: S&P 500, Dow Jones, NASDAQ, FTSE 100,
// Nikkei 225.
var DefaultIndices = []string{"^GSPC", "^DJI", "^IXIC", "^FTSE", "^N225"}

// ValidationError reports a missing required parameter for an endpoint.
type ValidationError struct {
	DataType DataType
	Field    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required for %s requests", e.Field, e.DataType)
}
