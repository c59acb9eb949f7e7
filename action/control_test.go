package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/metrics"
	"github.com/stormforge/stormforge/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsUntilDurationElapses(t *testing.T) {
	count := 0
	loop := &Loop{
		DurationMS: 30,
		Inner: actionFunc(func(_ context.Context, s *session.Session) (*session.Session, error) {
			count++
			time.Sleep(5 * time.Millisecond)
			return s, nil
		}),
	}
	s := session.New("Smoke", core.Config{}, false)
	_, err := loop.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Greater(t, count, 1)
}

func TestLoopPropagatesInnerError(t *testing.T) {
	boom := errors.New("boom")
	loop := &Loop{
		DurationMS: 30,
		Inner: actionFunc(func(_ context.Context, s *session.Session) (*session.Session, error) {
			return s, boom
		}),
	}
	s := session.New("Smoke", core.Config{}, false)
	_, err := loop.Run(context.Background(), s)
	assert.ErrorIs(t, err, boom)
}

func TestDelayWaitsAtLeastDuration(t *testing.T) {
	d := &Delay{DurationMS: 20}
	s := session.New("Smoke", core.Config{}, false)
	start := time.Now()
	_, err := d.Run(context.Background(), s)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestCallRecordsMetricWhenNamed(t *testing.T) {
	c := &Call{
		Module: "checkout",
		Func:   "place_order",
		Fn: func(_ context.Context, s *session.Session) (*session.Session, error) {
			return s, nil
		},
	}
	s := session.New("Smoke", core.Config{}, false)
	out, err := c.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, out.Metrics, metrics.CallKey("checkout", "place_order"))
}

func TestAsyncAndAwaitRoundTrip(t *testing.T) {
	s := session.New("Smoke", core.Config{}, false)
	async := &Async{
		TaskName: "bg",
		Fn: func(_ context.Context, s *session.Session) (*session.Session, error) {
			return s.SetConfig("ran", true), nil
		},
	}
	s, err := async.Run(context.Background(), s)
	require.NoError(t, err)

	await := &Await{TaskName: "bg"}
	s, err = await.Run(context.Background(), s)
	require.NoError(t, err)

	v, err := s.ConfigValue("ran")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestSpreadAsyncSpawnsRateTasks(t *testing.T) {
	s := session.New("Smoke", core.Config{}, false)
	spread := &SpreadAsync{
		TaskName: "spread",
		Rate:     3,
		Interval: 30,
		Fn: func(_ context.Context, s *session.Session) (*session.Session, error) {
			return s, nil
		},
	}
	s, err := spread.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, s.AsyncTasks["spread"], 3)
}

func TestRunScenarioLocalExecutesInline(t *testing.T) {
	s := session.New("Smoke", core.Config{}, false)
	rs := &RunScenario{
		Scenario: scenarioFunc(func(_ context.Context, s *session.Session) (*session.Session, error) {
			return s.SetConfig("inline", true), nil
		}),
		Placement: Local,
	}
	out, err := rs.Run(context.Background(), s)
	require.NoError(t, err)
	v, err := out.ConfigValue("inline")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestRunScenarioClusterDispatches(t *testing.T) {
	s := session.New("Smoke", core.Config{}, false)
	called := false
	rs := &RunScenario{
		Scenario:  scenarioFunc(func(_ context.Context, s *session.Session) (*session.Session, error) { return s, nil }),
		Placement: Cluster,
		Dispatcher: dispatcherFunc(func(_ context.Context, _ ScenarioRunner, s *session.Session) (*session.Session, error) {
			called = true
			return s, nil
		}),
	}
	_, err := rs.Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, called)
}

type actionFunc func(ctx context.Context, s *session.Session) (*session.Session, error)

func (f actionFunc) Name() string { return "test.action" }
func (f actionFunc) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	return f(ctx, s)
}

type scenarioFunc func(ctx context.Context, s *session.Session) (*session.Session, error)

func (f scenarioFunc) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	return f(ctx, s)
}

type dispatcherFunc func(ctx context.Context, sc ScenarioRunner, s *session.Session) (*session.Session, error)

func (f dispatcherFunc) Dispatch(ctx context.Context, sc ScenarioRunner, s *session.Session) (*session.Session, error) {
	return f(ctx, sc, s)
}
