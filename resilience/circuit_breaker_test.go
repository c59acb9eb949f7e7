package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerTripsAfterVolumeAndErrorThreshold(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.VolumeThreshold = 4
	cfg.ErrorThreshold = 0.5
	cb := NewCircuitBreaker(cfg)

	fail := errors.New("boom")
	for i := 0; i < 4; i++ {
		_ = cb.Execute(context.Background(), func() error { return fail })
	}

	assert.Equal(t, StateOpen, cb.State())
	err := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorContains(t, err, "circuit breaker open")
}

func TestCircuitBreakerHalfOpenRecoversToClosed(t *testing.T) {
	cfg := DefaultConfig("recover")
	cfg.VolumeThreshold = 2
	cfg.ErrorThreshold = 0.5
	cfg.SleepWindow = 1 * time.Millisecond
	cfg.HalfOpenRequests = 2
	cb := NewCircuitBreaker(cfg)

	fail := errors.New("boom")
	_ = cb.Execute(context.Background(), func() error { return fail })
	_ = cb.Execute(context.Background(), func() error { return fail })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(5 * time.Millisecond)

	err := cb.Execute(context.Background(), func() error { return nil })
	require.NoError(t, err)
	err = cb.Execute(context.Background(), func() error { return nil })
	require.NoError(t, err)

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerResetForcesClosed(t *testing.T) {
	cfg := DefaultConfig("reset")
	cfg.VolumeThreshold = 1
	cfg.ErrorThreshold = 0.1
	cb := NewCircuitBreaker(cfg)

	_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}
