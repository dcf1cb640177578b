package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/wealthdesk/market-proxy/pkg/marketdata"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := Key{DataType: marketdata.TypeQuote, Symbol: "AAPL"}
	payload := json.RawMessage(`{"c":150,"pc":148.5}`)

	entry := NewEntry(key, payload, time.Now())
	if err := store.Put(ctx, key, entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Payload) != string(payload) {
		t.Errorf("Payload = %s, want %s", got.Payload, payload)
	}
}

func TestMemoryStoreMiss(t *testing.T) {
	store := NewMemoryStore()
	key := Key{DataType: marketdata.TypeQuote, Symbol: "MSFT"}

	_, err := store.Get(context.Background(), key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryStoreExpiredEntryIsMiss(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := Key{DataType: marketdata.TypeQuote, Symbol: "AAPL"}

	stale := &Entry{
		DataType:  key.DataType,
		Symbol:    key.Symbol,
		Payload:   json.RawMessage(`{"c":1}`),
		WrittenAt: time.Now().Add(-2 * time.Minute),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := store.Put(ctx, key, stale); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	_, err := store.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() on expired entry error = %v, want ErrCacheMiss", err)
	}

	// Stale entries stay until overwritten, they are just never served.
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestMemoryStorePutSupersedes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := Key{DataType: marketdata.TypeQuote, Symbol: "AAPL"}

	first := NewEntry(key, json.RawMessage(`{"c":150}`), time.Now())
	if err := store.Put(ctx, key, first); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	second := NewEntry(key, json.RawMessage(`{"c":151}`), time.Now())
	if err := store.Put(ctx, key, second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Payload) != `{"c":151}` {
		t.Errorf("Payload = %s, want superseding write", got.Payload)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (upsert, not append)", store.Len())
	}
}

func TestMemoryStoreNilEntry(t *testing.T) {
	store := NewMemoryStore()
	key := Key{DataType: marketdata.TypeQuote, Symbol: "AAPL"}

	if err := store.Put(context.Background(), key, nil); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Put(nil) error = %v, want ErrInvalidEntry", err)
	}
}
