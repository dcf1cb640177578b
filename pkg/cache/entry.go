package cache

import (
	"encoding/json"
	"time"

	"github.com/wealthdesk/market-proxy/pkg/marketdata"
)

// Entry is one cached upstream payload. Entries are idempotent snapshots
// of upstream truth: overwriting one with a fresher fetch is always safe.
type Entry struct {
	// DataType is the logical endpoint this payload came from.
	DataType marketdata.DataType `json:"data_type"`

	// Symbol is the key's symbol slot (empty for endpoint-wide data).
	Symbol string `json:"symbol"`

	// Payload is the raw upstream response body.
	Payload json.RawMessage `json:"payload"`

	// WrittenAt is when the payload was fetched and stored.
	WrittenAt time.Time `json:"written_at"`

	// ExpiresAt is when the entry goes stale and must not be served
	// without a refresh.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewEntry builds an entry for a fresh upstream payload, stamping it with
// the endpoint's TTL.
func NewEntry(key Key, payload json.RawMessage, now time.Time) *Entry {
	return &Entry{
		DataType:  key.DataType,
		Symbol:    key.Symbol,
		Payload:   payload,
		WrittenAt: now,
		ExpiresAt: now.Add(key.DataType.TTL()),
	}
}

// IsExpired returns true once the entry has passed its expiry.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.ExpiresAt)
}

// TTL returns the time until expiration, 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
