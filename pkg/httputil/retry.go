package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses, empty bodies)
// with this type so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Policy bounds a Retry loop.
type Policy struct {
	Attempts int           // Total attempts, at least 1
	Delay    time.Duration // Wait between attempts
}

// DefaultPolicy is three attempts two seconds apart.
var DefaultPolicy = Policy{Attempts: 3, Delay: 2 * time.Second}

// Retry executes fn up to p.Attempts times. fn receives the 1-based attempt
// number. It only retries errors wrapped with [RetryableError]; other errors
// are returned immediately. Returns the last error if all attempts fail, or
// ctx.Err() if cancelled while waiting.
func Retry(ctx context.Context, p Policy, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(i + 1); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay):
			}
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
