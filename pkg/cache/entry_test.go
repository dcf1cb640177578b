package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/wealthdesk/market-proxy/pkg/marketdata"
)

func TestNewEntryStampsTTL(t *testing.T) {
	tests := []struct {
		dataType marketdata.DataType
		wantTTL  time.Duration
	}{
		{marketdata.TypeQuote, 60 * time.Second},
		{marketdata.TypeIndices, 60 * time.Second},
		{marketdata.TypeNews, 5 * time.Minute},
		{marketdata.TypeCandles, 5 * time.Minute},
		{marketdata.TypeSearch, time.Hour},
	}

	now := time.Now()
	for _, tt := range tests {
		t.Run(string(tt.dataType), func(t *testing.T) {
			key := Key{DataType: tt.dataType, Symbol: "AAPL"}
			entry := NewEntry(key, json.RawMessage(`{"c":150}`), now)

			if got := entry.ExpiresAt.Sub(entry.WrittenAt); got != tt.wantTTL {
				t.Errorf("ExpiresAt - WrittenAt = %v, want %v", got, tt.wantTTL)
			}
			if entry.DataType != tt.dataType {
				t.Errorf("DataType = %v, want %v", entry.DataType, tt.dataType)
			}
			if entry.Symbol != "AAPL" {
				t.Errorf("Symbol = %q, want AAPL", entry.Symbol)
			}
		})
	}
}

func TestEntryIsExpired(t *testing.T) {
	live := &Entry{ExpiresAt: time.Now().Add(time.Minute)}
	if live.IsExpired() {
		t.Error("entry expiring in a minute should not be expired")
	}

	stale := &Entry{ExpiresAt: time.Now().Add(-time.Second)}
	if !stale.IsExpired() {
		t.Error("entry past expiry should be expired")
	}
}

func TestEntryTTL(t *testing.T) {
	entry := &Entry{ExpiresAt: time.Now().Add(time.Minute)}
	ttl := entry.TTL()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL() = %v, want (0, 1m]", ttl)
	}

	stale := &Entry{ExpiresAt: time.Now().Add(-time.Minute)}
	if got := stale.TTL(); got != 0 {
		t.Errorf("expired TTL() = %v, want 0", got)
	}
}
