// Package testutil provides testing utilities for the market-data proxy.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock provider endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockProvider is a configurable mock market-data provider for testing.
type MockProvider struct {
	server    *httptest.Server
	mu        sync.Mutex
	handlers  map[string]func(w http.ResponseWriter, r *http.Request)
	sequences map[string][]MockResponse

	// Tracking
	RequestCount int
	PathCounts   map[string]int
	LastQuery    url.Values
}

// NewMockProvider creates a mock provider serving canned payloads for
// every endpoint the upstream client knows.
func NewMockProvider() *MockProvider {
	mock := &MockProvider{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		sequences:  make(map[string][]MockResponse),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastQuery = r.URL.Query()

		if seq, ok := mock.sequences[r.URL.Path]; ok && len(seq) > 0 {
			resp := seq[0]
			mock.sequences[r.URL.Path] = seq[1:]
			mock.mu.Unlock()
			writeResponse(w, resp)
			return
		}

		handler, ok := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if ok {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockProvider) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockProvider) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastQuery = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockProvider) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockProvider) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, _ *http.Request) {
		writeResponse(w, resp)
	})
}

// SetSequence scripts consecutive responses for a path, one per request.
// Once the sequence is drained, the path falls back to its handler or
// the default payload.
func (m *MockProvider) SetSequence(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[path] = responses
}

// Requests returns the number of requests made to a path.
func (m *MockProvider) Requests(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PathCounts[path]
}

// TotalRequests returns the number of requests made to the server.
func (m *MockProvider) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// defaultHandler provides provider-like responses per endpoint.
func (m *MockProvider) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/quote":
		_, _ = w.Write([]byte(QuotePayload))
	case "/search":
		_, _ = w.Write([]byte(`{"count":1,"result":[{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"}]}`))
	case "/news", "/company-news":
		_, _ = w.Write([]byte(`[{"category":"company","datetime":1700000000,"headline":"Example headline","id":1,"source":"Example","summary":"","url":"https://example.com/1"}]`))
	case "/stock/candle":
		_, _ = w.Write([]byte(`{"c":[150],"h":[152],"l":[148],"o":[149],"s":"ok","t":[1700000000],"v":[1000000]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}
}

// QuotePayload is the canned quote returned by the default handler.
const QuotePayload = `{"c":150,"d":1.5,"dp":1.0,"h":152,"l":148,"o":149,"pc":148.5,"t":1700000000}`

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"API limit reached"}`,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"internal server error"}`,
	}
}

// NewQuoteResponse creates a 200 response carrying a quote payload.
func NewQuoteResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	}
}
