package action

import (
	"context"
	"time"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/metrics"
	"github.com/stormforge/stormforge/session"
	"golang.org/x/time/rate"
)

// Loop implements spec §4.7 Loop: records a start timestamp on entry and
// repeats Inner while now-start <= DurationMS, then returns. An error from
// Inner aborts the loop and propagates.
type Loop struct {
	Inner      Action
	DurationMS int64
}

func (l *Loop) Name() string { return "loop" }

func (l *Loop) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	start := core.Timestamp()
	cur := s
	for core.Elapsed(start) <= l.DurationMS {
		next, err := l.Inner.Run(ctx, cur)
		if err != nil {
			return cur, err
		}
		cur = next
		if cur.IsCancelled() {
			return cur, nil
		}
	}
	return cur, nil
}

// Delay implements spec §4.7 Delay: suspends the worker for DurationMS.
// RandomUpTo selects [1, DurationMS] uniformly when Random is set,
// matching config's random_delay.
type Delay struct {
	DurationMS int64
	Random     bool
}

func (d *Delay) Name() string { return "delay" }

func (d *Delay) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	wait := d.DurationMS
	if d.Random {
		wait = core.RandomUpTo(d.DurationMS)
	}
	select {
	case <-time.After(time.Duration(wait) * time.Millisecond):
		return s, nil
	case <-ctx.Done():
		return s, ctx.Err()
	}
}

// CallFunc is the function shape CallFunction traces: the scenario's
// module and function name are supplied separately so the call can be
// recorded under the (:call, (module, func)) metric key.
type CallFunc func(ctx context.Context, s *session.Session) (*session.Session, error)

// Call implements spec §4.7 CallFunction. When Module/Func are set, the
// call is timestamped and recorded under (:call,(module,func)); a call
// with no Module/Func name (the "lambda" case) runs untraced.
type Call struct {
	Fn     CallFunc
	Module string
	Func   string
}

func (c *Call) Name() string {
	if c.Module == "" && c.Func == "" {
		return "call"
	}
	return "call." + c.Module + "." + c.Func
}

func (c *Call) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	if c.Module == "" && c.Func == "" {
		return c.Fn(ctx, s)
	}
	key := metrics.CallKey(c.Module, c.Func)
	start := core.Timestamp()
	next, err := c.Fn(ctx, s)
	elapsed := core.Elapsed(start)
	if err != nil {
		return s, err
	}
	return next.RecordMetric(key, elapsed), nil
}

// Async implements spec §4.7 Async: spawns fn against the current session
// under TaskName, to be joined later via an Await action or the scenario
// engine's drain step.
type Async struct {
	TaskName string
	Fn       session.Func
}

func (a *Async) Name() string { return "async" }

func (a *Async) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	return s.SpawnAsync(ctx, a.TaskName, a.Fn), nil
}

// Await joins the oldest pending task under TaskName, merging its session
// back in (the explicit counterpart to DrainAsync's implicit end-of-run
// join, spec §4.3 step 5).
type Await struct {
	TaskName string
}

func (a *Await) Name() string { return "await" }

func (a *Await) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	return s.AwaitAsync(ctx, a.TaskName)
}

// SpreadAsync implements spec §4.7 SpreadAsync: spawns Rate copies of Fn
// paced across Interval so they start at an approximately uniform rate
// instead of all at once. Pacing is done with a golang.org/x/time/rate
// token bucket (Burst 1, refilled every Interval/Rate), the same limiter
// type goadesign-goa-ai/features/model/middleware/ratelimit.go uses to gate
// inbound requests — SpreadAsync turns that gate around to pace outbound
// synthetic load instead.
type SpreadAsync struct {
	TaskName string
	Fn       session.Func
	Rate     int
	Interval int64 // ms
}

func (a *SpreadAsync) Name() string { return "spread_async" }

func (a *SpreadAsync) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	if a.Rate <= 0 {
		return s, nil
	}
	step := time.Duration(a.Interval) * time.Millisecond / time.Duration(a.Rate)
	limiter := rate.NewLimiter(rate.Every(step), 1)

	cur := s
	for i := 0; i < a.Rate; i++ {
		fn := a.Fn
		wrapped := func(ctx context.Context, in *session.Session) (*session.Session, error) {
			if err := limiter.Wait(ctx); err != nil {
				return in, err
			}
			return fn(ctx, in)
		}
		cur = cur.SpawnAsync(ctx, a.TaskName, wrapped)
	}
	return cur, nil
}

// ScenarioRunner is implemented by the scenario package's Scenario so the
// action package can invoke RunScenario without importing scenario
// directly (scenario already imports action/session, so the dependency
// would otherwise be circular).
type ScenarioRunner interface {
	Run(ctx context.Context, s *session.Session) (*session.Session, error)
}

// Placement selects where RunScenario executes the nested scenario, spec
// §4.7 RunScenario's "local" vs "cluster" choice.
type Placement int

const (
	Local Placement = iota
	Cluster
)

// Dispatcher places a RunScenario(cluster) invocation on a worker node; the
// master/worker packages supply the concrete implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, scenario ScenarioRunner, s *session.Session) (*session.Session, error)
}

// RunScenario implements spec §4.7 RunScenario: executes another scenario
// inline or submits it to a cluster node, then joins and merges the
// resulting session.
type RunScenario struct {
	Scenario   ScenarioRunner
	Placement  Placement
	Dispatcher Dispatcher
}

func (r *RunScenario) Name() string { return "run_scenario" }

func (r *RunScenario) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	if r.Placement == Local || r.Dispatcher == nil {
		return r.Scenario.Run(ctx, s)
	}
	return r.Dispatcher.Dispatch(ctx, r.Scenario, s)
}
