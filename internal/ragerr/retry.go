package ragerr

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy configures exponential backoff: a fixed base delay, a fixed
// exponent, and a fixed attempt count.
type RetryPolicy struct {
	BaseDelay   time.Duration
	Exponent    float64
	MaxAttempts int
}

// InternalRetryPolicy backs retries for transient local I/O (file locks,
// disk-busy, local read errors): 200ms base, exponent 2, 3 attempts.
var InternalRetryPolicy = RetryPolicy{BaseDelay: 200 * time.Millisecond, Exponent: 2, MaxAttempts: 3}

// RemoteRetryPolicy backs retries for the LLM collaborator (timeouts, 5xx):
// 1s base, exponent 2, 3 attempts.
var RemoteRetryPolicy = RetryPolicy{BaseDelay: time.Second, Exponent: 2, MaxAttempts: 3}

// Do runs fn under the policy. Only errors for which Retryable(err) is true
// are retried; a non-transient error returns immediately without waiting.
func Do(ctx context.Context, policy RetryPolicy, fn func() error) error {
	delay := policy.BaseDelay
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !Retryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.Exponent)
	}

	return fmt.Errorf("failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}

// DoWithResult is Do for functions that also produce a value.
func DoWithResult[T any](ctx context.Context, policy RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T
	delay := policy.BaseDelay
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !Retryable(err) {
			return zero, err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.Exponent)
	}

	return zero, fmt.Errorf("failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}
