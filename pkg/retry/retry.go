// Package retry implements a bounded retry policy with exponential backoff.
//
// Callers mark an error as retryable with Retryable; anything else returned
// from the operation stops the loop immediately. This keeps the classification
// decision (which failures are transient) at the call site while the policy
// object owns attempt counting and backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config holds the retry policy.
type Config struct {
	MaxAttempts int           // total attempts, including the first (0 = unbounded)
	InitialWait time.Duration // wait before the second attempt
	MaxWait     time.Duration // cap on a single wait
	Multiplier  float64       // backoff multiplier
	Jitter      float64       // jitter factor in [0, 1)
}

// DefaultConfig matches the rate-limit policy of the Feishu client: base 1s,
// doubling, five attempts.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		InitialWait: time.Second,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.1,
	}
}

// RetryableError marks an error as transient.
type RetryableError struct {
	Err error
}

func (e RetryableError) Error() string {
	return e.Err.Error()
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

// Retryable wraps err so Do will retry after it.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return RetryableError{Err: err}
}

// IsRetryable reports whether err carries the retryable marker.
func IsRetryable(err error) bool {
	var retryable RetryableError
	return errors.As(err, &retryable)
}

// Do runs fn until it succeeds, returns a non-retryable error, exhausts the
// attempt budget, or ctx is done. The returned error is unwrapped from the
// retryable marker so callers see the original failure.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error

	for attempt := 1; cfg.MaxAttempts == 0 || attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait(cfg, attempt)):
		}
	}

	return unwrapMarker(lastErr)
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 1; cfg.MaxAttempts == 0 || attempt <= cfg.MaxAttempts; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return result, err
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait(cfg, attempt)):
		}
	}

	return result, unwrapMarker(lastErr)
}

func wait(cfg Config, attempt int) time.Duration {
	w := float64(cfg.InitialWait) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxWait > 0 && w > float64(cfg.MaxWait) {
		w = float64(cfg.MaxWait)
	}
	if cfg.Jitter > 0 {
		w += w * cfg.Jitter * (rand.Float64()*2 - 1) //nolint:gosec // timing jitter only
	}
	return time.Duration(w)
}

func unwrapMarker(err error) error {
	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.Err
	}
	return err
}
