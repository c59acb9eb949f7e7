// Package resilience implements the retry and circuit-breaking discipline
// that wraps HTTP/WebSocket action drivers: a sliding-window error-rate
// circuit breaker and a bounded-retry helper, both grounded on the
// teacher's production circuit breaker and retry helper
// (itsneelabh-gomind/resilience/circuit_breaker.go, retry.go), trimmed
// from that file's agent-to-agent-call-oriented design down to the state
// machine and windowing this module's action dispatch actually needs.
package resilience

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stormforge/stormforge/core"
)

// CircuitState mirrors the standard open/closed/half-open circuit breaker
// state machine.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// MetricsCollector receives circuit breaker lifecycle events. The only
// implementation in this module is the no-op one DefaultConfig installs
// (telemetry.Provider does not implement it); a caller can set
// Config.Metrics to its own.
type MetricsCollector interface {
	RecordAction(name string, success bool)
	RecordStateChange(name string, from, to CircuitState)
}

type noopMetrics struct{}

func (noopMetrics) RecordAction(string, bool)                 {}
func (noopMetrics) RecordStateChange(string, CircuitState, CircuitState) {}

// Config configures one named circuit breaker. The defaults match the
// teacher's production tuning (50% error rate over a minimum sample of 10
// requests, 30s recovery window).
type Config struct {
	Name             string
	ErrorThreshold   float64 // fraction of failures that trips the breaker
	VolumeThreshold  int     // minimum samples before evaluating ErrorThreshold
	SleepWindow      time.Duration
	HalfOpenRequests int
	WindowSize       time.Duration
	BucketCount      int
	Logger           core.Logger
	Metrics          MetricsCollector
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		ErrorThreshold:   0.5,
		VolumeThreshold:  10,
		SleepWindow:      30 * time.Second,
		HalfOpenRequests: 5,
		WindowSize:       60 * time.Second,
		BucketCount:      10,
		Logger:           &core.NoOpLogger{},
		Metrics:          noopMetrics{},
	}
}

// CircuitBreaker wraps a dispatched HTTP/WS action: Execute runs fn only
// while the circuit is closed (or probing in half-open), short-circuiting
// with ErrCircuitBreakerOpen otherwise.
type CircuitBreaker struct {
	cfg    Config
	window *slidingWindow

	mu              sync.Mutex
	state           CircuitState
	openedAt        time.Time
	halfOpenInFlight int32
}

func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	if cfg.Logger == nil {
		cfg.Logger = &core.NoOpLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.BucketCount <= 0 {
		cfg.BucketCount = 10
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 60 * time.Second
	}
	return &CircuitBreaker{
		cfg:    cfg,
		window: newSlidingWindow(cfg.WindowSize, cfg.BucketCount),
		state:  StateClosed,
	}
}

// Execute runs fn if the circuit allows it, recording the outcome and
// evaluating the state transition afterward.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if !cb.allow() {
		return fmt.Errorf("%w: %s", core.ErrCircuitBreakerOpen, cb.cfg.Name)
	}

	err := fn()
	cb.recordResult(err == nil)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.cfg.SleepWindow {
			cb.transition(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		if int(atomic.LoadInt32(&cb.halfOpenInFlight)) >= cb.cfg.HalfOpenRequests {
			return false
		}
		atomic.AddInt32(&cb.halfOpenInFlight, 1)
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordResult(success bool) {
	cb.cfg.Metrics.RecordAction(cb.cfg.Name, success)
	if success {
		cb.window.recordSuccess()
	} else {
		cb.window.recordFailure()
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		atomic.AddInt32(&cb.halfOpenInFlight, -1)
		if !success {
			cb.transition(StateOpen)
			return
		}
		if cb.window.total() >= uint64(cb.cfg.HalfOpenRequests) {
			cb.transition(StateClosed)
		}
		return
	}

	total := cb.window.total()
	if total < uint64(cb.cfg.VolumeThreshold) {
		return
	}
	if cb.window.errorRate() >= cb.cfg.ErrorThreshold {
		cb.transition(StateOpen)
	}
}

// transition must be called with cb.mu held.
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateOpen {
		cb.openedAt = time.Now()
	}
	if to == StateClosed {
		cb.window.reset()
	}
	cb.cfg.Logger.Info("circuit breaker state change", map[string]interface{}{
		"name": cb.cfg.Name, "from": from.String(), "to": to.String(),
	})
	cb.cfg.Metrics.RecordStateChange(cb.cfg.Name, from, to)
}

// State returns the breaker's current state for inspection/metrics.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to closed and clears its window, used
// between load-test runs the way metrics.Engine.Reset() clears histograms.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.window.reset()
}
