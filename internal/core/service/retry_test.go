package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rl1809/lending-engine/internal/port"
)

func Test_RetryWithExponentialBackoff_Success_NoRetries(t *testing.T) {
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		return nil
	}

	err := RetryWithExponentialBackoff(context.Background(), fn)

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func Test_RetryWithExponentialBackoff_RetryOnOptimisticLock(t *testing.T) {
	callCount := 0
	var retried []int
	fn := func(_ context.Context) error {
		callCount++
		if callCount < 3 {
			return port.ErrOptimisticLock
		}
		return nil
	}

	err := RetryWithExponentialBackoff(context.Background(), fn,
		WithBaseDelay(time.Millisecond),
		withRetryObserver(func(attempt int, _ error) { retried = append(retried, attempt) }),
	)

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
	assert.Equal(t, []int{1, 2}, retried)
}

func Test_RetryWithExponentialBackoff_GivesUpAfterMaxAttempts(t *testing.T) {
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		return port.ErrOptimisticLock
	}

	err := RetryWithExponentialBackoff(context.Background(), fn,
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond),
		WithJitterFactor(0),
	)

	assert.ErrorIs(t, err, port.ErrOptimisticLock)
	assert.Equal(t, 3, callCount)
}

func Test_RetryWithExponentialBackoff_NonRetryableError(t *testing.T) {
	callCount := 0
	boom := errors.New("boom")
	fn := func(_ context.Context) error {
		callCount++
		return boom
	}

	err := RetryWithExponentialBackoff(context.Background(), fn)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, callCount)
}

func Test_RetryWithExponentialBackoff_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(_ context.Context) error {
		cancel()
		return port.ErrOptimisticLock
	}

	err := RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(time.Second))

	assert.ErrorIs(t, err, context.Canceled)
}

func Test_RetryWithExponentialBackoff_InvalidOptions(t *testing.T) {
	ctx := context.Background()
	fn := func(_ context.Context) error { return nil }

	assert.ErrorIs(t, RetryWithExponentialBackoff(ctx, fn, WithMaxAttempts(0)), ErrInvalidMaxAttempts)
	assert.ErrorIs(t, RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(-time.Second)), ErrNegativeBaseDelay)
	assert.ErrorIs(t, RetryWithExponentialBackoff(ctx, fn, WithJitterFactor(1.5)), ErrInvalidJitterFactor)
}
