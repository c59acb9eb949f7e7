// Package scenario implements the scenario execution engine of spec §4.3:
// the Scenario contract, the execute/execute_nested lifecycle, and the
// Sequence composition scenario.
package scenario

import (
	"context"
	"time"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/metrics"
	"github.com/stormforge/stormforge/session"
)

// Scenario is a module providing optional Init and mandatory Run, spec
// §4.3's "A Scenario is a module providing optional init(session) ->
// ok|error and mandatory run(session) -> session."
type Scenario interface {
	Name() string
	// Init runs once before Run; returning an error aborts execute().
	// Scenarios with no setup work can embed NoInit to satisfy this
	// trivially.
	Init(ctx context.Context, s *session.Session) error
	Run(ctx context.Context, s *session.Session) (*session.Session, error)
}

// NoInit is embedded by scenarios with no init step.
type NoInit struct{}

func (NoInit) Init(context.Context, *session.Session) error { return nil }

// Options configures one execute() call.
type Options struct {
	Config                core.Config
	MergeScenarioSessions bool
	Logger                core.Logger
}

// Execute implements spec §4.3 execute: builds the session, runs Init,
// applies the initial delay, invokes Run, drains async tasks, and — unless
// merge_scenario_sessions is set — replaces raw metrics with histogram
// snapshots before returning.
func Execute(ctx context.Context, sc Scenario, opts Options) (*session.Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	s := session.New(sc.Name(), opts.Config, opts.MergeScenarioSessions)

	if err := sc.Init(ctx, s); err != nil {
		logger.ErrorWithContext(ctx, "scenario init failed", map[string]interface{}{
			"scenario": sc.Name(), "session_id": s.ID, "error": err.Error(),
		})
		return s, core.NewSessionError("scenario.init", s.ID, err)
	}

	s = applyInitialDelay(ctx, s)

	next, err := sc.Run(ctx, s)
	if err != nil {
		return s, core.NewSessionError("scenario.run", s.ID, err)
	}
	s = next

	s, err = s.DrainAsync(ctx)
	if err != nil {
		logger.WarnWithContext(ctx, "async task join failed", map[string]interface{}{
			"scenario": sc.Name(), "session_id": s.ID, "error": err.Error(),
		})
	}

	if !opts.MergeScenarioSessions {
		s = applyHistogramSnapshot(s)
	}
	return s, nil
}

// applyInitialDelay honors config.delay (fixed ms) or config.random_delay
// (uniform up to N ms), spec §4.3 step 3.
func applyInitialDelay(ctx context.Context, s *session.Session) *session.Session {
	wait := int64(0)
	if v, err := s.ConfigValue("delay", nil); err == nil && v != nil {
		if ms, ok := toInt64(v); ok {
			wait = ms
		}
	} else if v, err := s.ConfigValue("random_delay", nil); err == nil && v != nil {
		if ms, ok := toInt64(v); ok {
			wait = core.RandomUpTo(ms)
		}
	}
	if wait <= 0 {
		return s
	}
	select {
	case <-time.After(time.Duration(wait) * time.Millisecond):
	case <-ctx.Done():
	}
	return s
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// applyHistogramSnapshot is spec §4.3 step 6's "replace raw metrics with
// histogram snapshots" for a non-merged run.
func applyHistogramSnapshot(s *session.Session) *session.Session {
	return s.ApplySnapshots(metrics.AddHistogramMetrics(s.Metrics, nil))
}
