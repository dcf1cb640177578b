//go:build integration

package integration

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wealthdesk/market-proxy/internal/testutil"
	"github.com/wealthdesk/market-proxy/pkg/cache"
	"github.com/wealthdesk/market-proxy/pkg/marketdata"
	"github.com/wealthdesk/market-proxy/pkg/resolver"
	"github.com/wealthdesk/market-proxy/pkg/sdk"
	"github.com/wealthdesk/market-proxy/pkg/server"
	"github.com/wealthdesk/market-proxy/pkg/upstream"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: endpoint})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// setupStack wires the full proxy over a Redis store and a mock provider,
// and returns an SDK client pointed at it.
func setupStack(t *testing.T, redisClient *redis.Client, mock *testutil.MockProvider) *sdk.Client {
	t.Helper()

	upstreamClient := upstream.New(upstream.Config{
		APIKey:  "integration-key",
		BaseURL: mock.URL(),
		Timeout: 5 * time.Second,
		Retry: upstream.RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 10 * time.Millisecond,
			MaxBackoff:     80 * time.Millisecond,
			Multiplier:     2.0,
		},
	})

	store := cache.NewRedisStore(redisClient)
	srv := httptest.NewServer(server.New(resolver.New(store, upstreamClient)))
	t.Cleanup(srv.Close)

	client, err := sdk.New(sdk.Config{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Retry: sdk.RetryPolicy{
			Retries:        2,
			InitialBackoff: 10 * time.Millisecond,
			MaxBackoff:     80 * time.Millisecond,
			Multiplier:     2.0,
		},
	})
	if err != nil {
		t.Fatalf("Failed to create SDK client: %v", err)
	}
	return client
}

// TestFullRequestFlow drives a quote through the whole stack twice: the
// first request misses the cache and reaches the provider, the second is
// served from Redis without an upstream call.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockProvider()
	defer mock.Close()

	client := setupStack(t, redisClient, mock)
	ctx := context.Background()

	quote1, err := client.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	if quote1.Current != 150 {
		t.Errorf("Current = %v, want 150", quote1.Current)
	}
	if mock.Requests("/quote") != 1 {
		t.Errorf("Provider requests = %d, want 1", mock.Requests("/quote"))
	}

	quote2, err := client.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Second request failed: %v", err)
	}
	if quote2.Current != quote1.Current {
		t.Errorf("Cached quote differs: %v vs %v", quote2.Current, quote1.Current)
	}
	if mock.Requests("/quote") != 1 {
		t.Errorf("Provider requests = %d, want 1 (second request served from cache)", mock.Requests("/quote"))
	}
}

// TestSkipCacheReachesProvider verifies a forced refresh bypasses a live
// cache entry and rewrites it.
func TestSkipCacheReachesProvider(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockProvider()
	defer mock.Close()

	client := setupStack(t, redisClient, mock)
	ctx := context.Background()

	if _, err := client.GetQuote(ctx, "AAPL"); err != nil {
		t.Fatalf("Warm-up request failed: %v", err)
	}

	_, err := client.Fetch(ctx, marketdata.Request{
		Endpoint: string(marketdata.TypeQuote),
		Symbol:   "AAPL",
	}, sdk.FetchOptions{SkipCache: true})
	if err != nil {
		t.Fatalf("Skip-cache request failed: %v", err)
	}

	if mock.Requests("/quote") != 2 {
		t.Errorf("Provider requests = %d, want 2 (bypass reaches the provider)", mock.Requests("/quote"))
	}
}

// TestRateLimitRetriedEndToEnd scripts two 429s before success; the proxy
// absorbs them and the SDK sees one clean response.
func TestRateLimitRetriedEndToEnd(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockProvider()
	defer mock.Close()

	mock.SetSequence("/quote",
		testutil.NewRateLimitResponse(),
		testutil.NewRateLimitResponse(),
		testutil.NewQuoteResponse(testutil.QuotePayload),
	)

	client := setupStack(t, redisClient, mock)

	quote, err := client.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Request failed despite retry budget: %v", err)
	}
	if quote.Current != 150 {
		t.Errorf("Current = %v, want 150", quote.Current)
	}
	if mock.Requests("/quote") != 3 {
		t.Errorf("Provider requests = %d, want 3 (two 429s then success)", mock.Requests("/quote"))
	}
}

// TestCacheExpiration verifies an expired entry is refreshed upstream.
func TestCacheExpiration(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockProvider()
	defer mock.Close()

	upstreamClient := upstream.New(upstream.Config{
		APIKey:  "integration-key",
		BaseURL: mock.URL(),
		Timeout: 5 * time.Second,
	})
	store := cache.NewRedisStore(redisClient)
	res := resolver.New(store, upstreamClient)

	ctx := context.Background()
	key := cache.Key{DataType: marketdata.TypeQuote, Symbol: "AAPL"}

	// Seed an entry that expires almost immediately.
	nearExpiry := &cache.Entry{
		DataType:  key.DataType,
		Symbol:    key.Symbol,
		Payload:   []byte(`{"c":1}`),
		WrittenAt: time.Now(),
		ExpiresAt: time.Now().Add(500 * time.Millisecond),
	}
	if err := store.Put(ctx, key, nearExpiry); err != nil {
		t.Fatalf("Seed write failed: %v", err)
	}

	payload, err := res.Resolve(ctx, marketdata.TypeQuote, marketdata.Params{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if string(payload) != `{"c":1}` {
		t.Errorf("payload = %s, want seeded entry while live", payload)
	}
	if mock.Requests("/quote") != 0 {
		t.Errorf("Provider requests = %d, want 0 before expiry", mock.Requests("/quote"))
	}

	time.Sleep(time.Second)

	payload, err = res.Resolve(ctx, marketdata.TypeQuote, marketdata.Params{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("Resolve() after expiry error = %v", err)
	}
	if string(payload) != testutil.QuotePayload {
		t.Errorf("payload = %s, want refreshed provider payload", payload)
	}
	if mock.Requests("/quote") != 1 {
		t.Errorf("Provider requests = %d, want 1 after expiry", mock.Requests("/quote"))
	}
}

// TestRefreshWarmsCache fires a best-effort batch refresh through the SDK
// and verifies subsequent reads are cache hits.
func TestRefreshWarmsCache(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockProvider()
	defer mock.Close()

	client := setupStack(t, redisClient, mock)
	ctx := context.Background()

	succeeded := client.Refresh(ctx, []marketdata.Request{
		{Endpoint: string(marketdata.TypeQuote), Symbol: "AAPL"},
		{Endpoint: string(marketdata.TypeQuote), Symbol: "MSFT"},
		{Endpoint: string(marketdata.TypeSearch), Query: "apple"},
	})
	if succeeded != 3 {
		t.Fatalf("Refresh() = %d, want 3", succeeded)
	}

	before := mock.TotalRequests()
	if _, err := client.GetQuote(ctx, "AAPL"); err != nil {
		t.Fatalf("GetQuote() after refresh failed: %v", err)
	}
	if _, err := client.SearchSymbols(ctx, "apple"); err != nil {
		t.Fatalf("SearchSymbols() after refresh failed: %v", err)
	}
	if mock.TotalRequests() != before {
		t.Errorf("Provider requests grew from %d to %d, want cache hits", before, mock.TotalRequests())
	}
}
