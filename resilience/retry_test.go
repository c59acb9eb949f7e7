package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stormforge/stormforge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustsAndWrapsMaxRetriesExceeded(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return errors.New("permanent")
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.ErrorIs(t, err, core.ErrMaxRetriesExceeded)
}

func TestRetryOnErrorStopsImmediatelyOnNonRetryable(t *testing.T) {
	attempts := 0
	err := RetryOnError(context.Background(), nil, func(error) bool { return false }, func() error {
		attempts++
		return errors.New("config missing")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.NotErrorIs(t, err, core.ErrMaxRetriesExceeded)
}

func TestRetryOnErrorRetriesClassifiedErrors(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
	attempts := 0
	err := RetryOnError(context.Background(), cfg, func(error) bool { return true }, func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithCircuitBreakerDelegatesToExecute(t *testing.T) {
	cb := NewCircuitBreaker(DefaultConfig("wrap"))
	called := false
	err := WithCircuitBreaker(context.Background(), cb, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
