package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rl1809/lending-engine/internal/port"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc is one attempt of a unit of work.
type RetryableFunc func(ctx context.Context) error

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	onRetry      func(attempt int, err error)
}

// RetryOption configures RetryWithExponentialBackoff.
type RetryOption func(*retryConfig) error

func WithMaxAttempts(n int) RetryOption {
	return func(c *retryConfig) error {
		if n <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = n
		return nil
	}
}

func WithBaseDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) error {
		if d < 0 {
			return ErrNegativeBaseDelay
		}
		c.baseDelay = d
		return nil
	}
}

func WithJitterFactor(f float64) RetryOption {
	return func(c *retryConfig) error {
		if f < 0 || f > 1 {
			return ErrInvalidJitterFactor
		}
		c.jitterFactor = f
		return nil
	}
}

func withRetryObserver(fn func(attempt int, err error)) RetryOption {
	return func(c *retryConfig) error {
		c.onRetry = fn
		return nil
	}
}

// RetryWithExponentialBackoff re-runs fn while it fails with
// port.ErrOptimisticLock, waiting baseDelay * 2^(attempt-1) plus jitter
// between attempts. Every other error fails fast.
//
// Default schedule: 0, 10, 20, 40, 80, 160 ms (+30% jitter).
func RetryWithExponentialBackoff(ctx context.Context, fn RetryableFunc, options ...RetryOption) error {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := config.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec // jitter only

			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !errors.Is(lastErr, port.ErrOptimisticLock) {
			return lastErr
		}

		if config.onRetry != nil && attempt < config.maxAttempts-1 {
			config.onRetry(attempt+1, lastErr)
		}
	}

	return lastErr
}
