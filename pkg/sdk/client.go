// Package sdk is the consumer-side client for the market-data proxy. It
// carries its own retry policy, independent of the proxy's upstream
// retries, and surfaces persistent failures through a callback and a
// pluggable notifier instead of failing the caller's UI.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/wealthdesk/market-proxy/pkg/logging"
	"github.com/wealthdesk/market-proxy/pkg/marketdata"
)

// Notifier surfaces a user-facing, non-blocking error notification.
// Callers plug in whatever surface they have (toast, status bar, log).
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// logNotifier is the default Notifier; it writes to the structured log.
type logNotifier struct {
	logger zerolog.Logger
}

func (n logNotifier) Notify(_ context.Context, message string) {
	n.logger.Error().Msg(message)
}

// RetryPolicy is the client-side retry configuration. It is deliberately
// separate from the proxy's policy so the composed worst-case latency of
// both layers stays calculable.
type RetryPolicy struct {
	// Retries is the number of attempts after the first (so Retries=2
	// means up to 3 total attempts).
	Retries int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64
}

// DefaultRetryPolicy returns the client-side policy: up to three total
// attempts with 1s/2s backoff, capped at 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:        2,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     8 * time.Second,
		Multiplier:     2.0,
	}
}

// APIError is a proxy error response with its HTTP status.
type APIError struct {
	StatusCode int
	Message    string
	ErrorCode  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market-data proxy error (status %d): %s", e.StatusCode, e.Message)
}

// Config holds the SDK client configuration.
type Config struct {
	// BaseURL is the proxy root, e.g. "http://localhost:8080".
	BaseURL string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// Retry is the client-side retry policy.
	Retry RetryPolicy

	// Notifier receives user-facing error notifications. Defaults to a
	// log-backed notifier.
	Notifier Notifier
}

// Client is the typed wrapper over the proxy's HTTP contract.
type Client struct {
	config     Config
	httpClient *http.Client
	notifier   Notifier
	logger     zerolog.Logger
}

// New creates an SDK client for the proxy at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	logger := logging.NewLogger("sdk")
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = logNotifier{logger: logger}
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		notifier:   notifier,
		logger:     logger,
	}, nil
}

// FetchOptions control one Fetch call. The zero value disables retries
// and notifications; use DefaultFetchOptions for the standard behavior.
type FetchOptions struct {
	// SkipCache asks the proxy to bypass its cache. Forwarded on the
	// first attempt only; retries after a failure do not re-request a
	// bypass.
	SkipCache bool

	// Retries is the number of attempts after the first.
	Retries int

	// OnError is invoked with the final error once retries are exhausted.
	OnError func(error)

	// Notify surfaces a user-facing notification on final failure.
	Notify bool
}

// DefaultFetchOptions returns the standard options: two retries and
// notifications on.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Retries: 2,
		Notify:  true,
	}
}

// Fetch posts one market-data request to the proxy, retrying failures
// with exponential backoff. After exhausting retries it invokes OnError,
// optionally notifies, and returns the last error.
func (c *Client) Fetch(ctx context.Context, req marketdata.Request, opts FetchOptions) (json.RawMessage, error) {
	payload, err := c.fetchWithRetry(ctx, req, opts)
	if err == nil {
		return payload, nil
	}

	if opts.OnError != nil {
		opts.OnError(err)
	}
	if opts.Notify {
		c.notifier.Notify(ctx, fmt.Sprintf("Market data error: could not load %s data", req.Endpoint))
	}
	return nil, err
}

func (c *Client) fetchWithRetry(ctx context.Context, req marketdata.Request, opts FetchOptions) (json.RawMessage, error) {
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	var lastErr error
	backoff := c.config.Retry.InitialBackoff

	attempts := opts.Retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		attemptReq := req
		attemptReq.SkipCache = req.SkipCache || (opts.SkipCache && attempt == 0)

		payload, err := c.post(ctx, attemptReq)
		if err == nil {
			if attempt > 0 {
				c.logger.Info().
					Str("endpoint", req.Endpoint).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return payload, nil
		}
		lastErr = err

		if attempt >= attempts-1 {
			break
		}

		c.logger.Debug().
			Err(err).
			Str("endpoint", req.Endpoint).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Retrying proxy request after backoff")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * c.config.Retry.Multiplier)
		if backoff > c.config.Retry.MaxBackoff {
			backoff = c.config.Retry.MaxBackoff
		}
	}

	return nil, lastErr
}

// post performs one POST to the proxy and decodes failures into APIError.
func (c *Client) post(ctx context.Context, req marketdata.Request) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/market-data", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("proxy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var errBody struct {
			Error     string `json:"error"`
			ErrorCode int    `json:"errorCode"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
			apiErr.ErrorCode = errBody.ErrorCode
		}
		return nil, apiErr
	}

	var payload json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(payload) == 0 || string(payload) == "null" {
		return nil, fmt.Errorf("empty payload for %s", req.Endpoint)
	}
	return payload, nil
}
