package upstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// testPolicy keeps retry tests fast.
func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     40 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", policy.MaxAttempts)
	}
	if policy.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", policy.InitialBackoff)
	}
	if policy.MaxBackoff != 8*time.Second {
		t.Errorf("MaxBackoff = %v, want 8s", policy.MaxBackoff)
	}
	if policy.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", policy.Multiplier)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	err := retryWithBackoff(ctx, testPolicy(), zerolog.Nop(), func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessAfterRateLimit(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	err := retryWithBackoff(ctx, testPolicy(), zerolog.Nop(), func() error {
		callCount++
		if callCount < 3 {
			return &Error{StatusCode: 429, Class: ErrorClassRateLimit, Message: "429 Too Many Requests"}
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_BackoffDoubles(t *testing.T) {
	ctx := context.Background()

	var timestamps []time.Time
	_ = retryWithBackoff(ctx, testPolicy(), zerolog.Nop(), func() error {
		timestamps = append(timestamps, time.Now())
		return &Error{Class: ErrorClassNetwork, Message: "dial failed"}
	})

	if len(timestamps) != 3 {
		t.Fatalf("Expected 3 attempts, got %d", len(timestamps))
	}

	// With jitter the delays are ±20% of 5ms then 10ms; the second gap
	// must be meaningfully longer than the first.
	first := timestamps[1].Sub(timestamps[0])
	second := timestamps[2].Sub(timestamps[1])
	if first < 3*time.Millisecond {
		t.Errorf("first backoff = %v, want >= ~4ms", first)
	}
	if second < first {
		t.Errorf("second backoff (%v) should exceed first (%v)", second, first)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	err := retryWithBackoff(ctx, testPolicy(), zerolog.Nop(), func() error {
		callCount++
		return &Error{StatusCode: 429, Class: ErrorClassRateLimit, Message: "429"}
	})

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}

	// The upstream status survives the exhaustion wrap.
	var upErr *Error
	if !errors.As(err, &upErr) {
		t.Fatal("Expected wrapped upstream error")
	}
	if upErr.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", upErr.StatusCode)
	}
}

func TestRetryWithBackoff_PermanentErrorNoRetry(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	permanent := &Error{StatusCode: 404, Class: ErrorClassUpstream, Message: "404 Not Found"}
	err := retryWithBackoff(ctx, testPolicy(), zerolog.Nop(), func() error {
		callCount++
		return permanent
	})

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for permanent errors), got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted when no retry was attempted")
	}

	var upErr *Error
	if !errors.As(err, &upErr) || upErr.StatusCode != 404 {
		t.Errorf("Expected original 404 error, got %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	err := retryWithBackoff(ctx, testPolicy(), zerolog.Nop(), func() error {
		callCount++
		if callCount == 1 {
			cancel()
		}
		return &Error{Class: ErrorClassNetwork, Message: "dial failed"}
	})

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount >= 3 {
		t.Errorf("Expected fewer than 3 calls due to cancellation, got %d", callCount)
	}
}
