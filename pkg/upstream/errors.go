package upstream

import (
	"errors"
	"fmt"
)

// Common errors returned by the upstream client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassRateLimit represents HTTP 429 responses. Retried with backoff.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport failures (connection refused,
	// timeouts, DNS). Retried with backoff.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUpstream represents any other non-2xx response. Failed
	// immediately, carrying the upstream status code.
	ErrorClassUpstream ErrorClass = "upstream"
)

// Error is an upstream provider error with the original status code.
type Error struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// shouldRetry determines whether a failure is worth another attempt.
// Only rate limiting and transport failures are transient; every other
// upstream status is permanent and propagates immediately.
func shouldRetry(err error) bool {
	var upErr *Error
	if errors.As(err, &upErr) {
		switch upErr.Class {
		case ErrorClassRateLimit, ErrorClassNetwork:
			return true
		default:
			return false
		}
	}
	// Unclassified errors are treated as transient.
	return true
}

// errorClass extracts the class from an error for metrics labels.
func errorClass(err error) ErrorClass {
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr.Class
	}
	return ErrorClassNetwork
}
