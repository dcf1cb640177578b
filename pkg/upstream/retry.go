package upstream

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_upstream_retries_total",
		Help: "Total number of upstream retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketdata_upstream_retry_backoff_seconds",
		Help:    "Backoff duration for upstream retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_upstream_retry_exhausted_total",
		Help: "Total number of times upstream retry attempts were exhausted",
	}, []string{"error_class"})
)

// RetryPolicy holds the configuration for retry logic. Both the proxy and
// the SDK carry their own independently configured policy, so the composed
// worst-case latency stays calculable.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64
}

// DefaultRetryPolicy returns the proxy-side policy: three attempts with
// 1s/2s backoff between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     8 * time.Second,
		Multiplier:     2.0,
	}
}

// retryWithBackoff executes fn with exponential backoff on retryable
// failures. It respects context cancellation and adds jitter to prevent
// thundering herd.
func retryWithBackoff(ctx context.Context, policy RetryPolicy, logger zerolog.Logger, fn func() error) error {
	var lastErr error
	backoff := policy.InitialBackoff

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		class := errorClass(err)

		if !shouldRetry(err) {
			// Permanent upstream errors propagate immediately.
			return lastErr
		}

		// If this was the last attempt, don't wait
		if attempt >= policy.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(class)).Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(class)).Observe(jitter.Seconds())

		logger.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying upstream request after backoff")

		select {
		case <-ctx.Done():
			logger.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * policy.Multiplier)
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	retryExhaustedTotal.WithLabelValues(string(errorClass(lastErr))).Inc()
	logger.Warn().
		Int("max_attempts", policy.MaxAttempts).
		Msg("Upstream retry attempts exhausted")

	// Both wraps matter: callers match ErrRetryExhausted, the router
	// still unwraps the upstream status code.
	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, policy.MaxAttempts, lastErr)
}
