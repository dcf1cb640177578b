// Package upstream provides the HTTP client for the third-party
// market-data provider, with retry/backoff on rate-limit and transient
// failures.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wealthdesk/market-proxy/pkg/logging"
	"github.com/wealthdesk/market-proxy/pkg/marketdata"
)

// Prometheus metrics for upstream requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_upstream_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketdata_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})
)

// newsWindow is the default lookback for company news and candles.
const newsWindow = 30 * 24 * time.Hour

// Config holds the upstream client configuration.
type Config struct {
	// APIKey is the provider API key, sent as a query parameter. An
	// empty key is logged at construction but does not fail; requests
	// surface the problem as upstream errors.
	APIKey string

	// BaseURL is the provider API root.
	BaseURL string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// Retry is the backoff policy for rate-limit and transient failures.
	Retry RetryPolicy

	// MaxConcurrency bounds the indices fan-out.
	MaxConcurrency int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:         apiKey,
		BaseURL:        "https://finnhub.io/api/v1",
		Timeout:        10 * time.Second,
		Retry:          DefaultRetryPolicy(),
		MaxConcurrency: 5,
	}
}

// Client translates logical market-data requests into provider HTTP calls.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates an upstream client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://finnhub.io/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 5
	}

	logger := logging.NewLogger("upstream")
	if cfg.APIKey == "" {
		logger.Error().Msg("Upstream API key not configured, provider calls will fail")
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Fetch performs the provider call(s) for one logical request and returns
// the raw JSON payload.
func (c *Client) Fetch(ctx context.Context, dt marketdata.DataType, params marketdata.Params) (json.RawMessage, error) {
	if err := params.Validate(dt); err != nil {
		return nil, err
	}

	switch dt {
	case marketdata.TypeQuote:
		return c.fetchQuote(ctx, params.Symbol)
	case marketdata.TypeSearch:
		return c.fetchSearch(ctx, params.Query)
	case marketdata.TypeNews:
		return c.fetchNews(ctx, params)
	case marketdata.TypeIndices:
		return c.fetchIndices(ctx, params.Symbols)
	case marketdata.TypeCandles:
		return c.fetchCandles(ctx, params)
	default:
		return nil, fmt.Errorf("unknown endpoint %q", dt)
	}
}

func (c *Client) fetchQuote(ctx context.Context, symbol string) (json.RawMessage, error) {
	return c.get(ctx, "/quote", url.Values{"symbol": {symbol}})
}

func (c *Client) fetchSearch(ctx context.Context, query string) (json.RawMessage, error) {
	return c.get(ctx, "/search", url.Values{"q": {query}})
}

// fetchNews fetches company news over a date range when a symbol is
// present, general news by category otherwise.
func (c *Client) fetchNews(ctx context.Context, params marketdata.Params) (json.RawMessage, error) {
	if params.Symbol != "" {
		now := time.Now()
		from := params.From.Date
		if from == "" {
			from = now.Add(-newsWindow).Format("2006-01-02")
		}
		to := params.To.Date
		if to == "" {
			to = now.Format("2006-01-02")
		}
		return c.get(ctx, "/company-news", url.Values{
			"symbol": {params.Symbol},
			"from":   {from},
			"to":     {to},
		})
	}

	category := params.Category
	if category == "" {
		category = "general"
	}
	return c.get(ctx, "/news", url.Values{"category": {category}})
}

func (c *Client) fetchCandles(ctx context.Context, params marketdata.Params) (json.RawMessage, error) {
	resolution := params.Resolution
	if resolution == "" {
		resolution = "D"
	}

	now := time.Now()
	from := params.From.Unix
	if from == 0 {
		from = now.Add(-newsWindow).Unix()
	}
	to := params.To.Unix
	if to == 0 {
		to = now.Unix()
	}

	return c.get(ctx, "/stock/candle", url.Values{
		"symbol":     {params.Symbol},
		"resolution": {resolution},
		"from":       {fmt.Sprintf("%d", from)},
		"to":         {fmt.Sprintf("%d", to)},
	})
}

// fetchIndices fans out one quote call per index symbol with bounded
// concurrency. Failures are isolated per symbol: a failing slot carries
// an error marker and the batch only fails when every symbol fails.
// Result order matches the requested symbol list.
func (c *Client) fetchIndices(ctx context.Context, symbols []string) (json.RawMessage, error) {
	if len(symbols) == 0 {
		symbols = marketdata.DefaultIndices
	}

	results := make([]marketdata.IndexQuote, len(symbols))

	var g errgroup.Group
	g.SetLimit(c.config.MaxConcurrency)

	for i, symbol := range symbols {
		g.Go(func() error {
			data, err := c.fetchQuote(ctx, symbol)
			if err != nil {
				c.logger.Warn().
					Err(err).
					Str("symbol", symbol).
					Msg("Index quote failed")
				results[i] = marketdata.IndexQuote{Symbol: symbol, Error: err.Error()}
				return nil
			}
			results[i] = marketdata.IndexQuote{Symbol: symbol, Data: data}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	if failed == len(results) {
		return nil, fmt.Errorf("all %d index quotes failed: %s", failed, results[0].Error)
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshal index batch: %w", err)
	}
	return payload, nil
}

// get performs one provider GET with retry/backoff and returns the body.
func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	query.Set("token", c.config.APIKey)
	endpoint := c.config.BaseURL + path + "?" + query.Encode()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(path).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			requestsTotal.WithLabelValues(path, "network_error").Inc()
			return &Error{Class: ErrorClassNetwork, Message: "request failed", Err: err}
		}
		defer resp.Body.Close()

		requestsTotal.WithLabelValues(path, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn().
				Str("endpoint", path).
				Msg("Upstream rate limited")
			return &Error{
				StatusCode: resp.StatusCode,
				Class:      ErrorClassRateLimit,
				Message:    resp.Status,
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &Error{
				StatusCode: resp.StatusCode,
				Class:      ErrorClassUpstream,
				Message:    resp.Status,
			}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &Error{Class: ErrorClassNetwork, Message: "read body", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
