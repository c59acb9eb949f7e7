package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/metrics"
	"github.com/stormforge/stormforge/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScenario struct {
	NoInit
	name    string
	runFn   func(ctx context.Context, s *session.Session) (*session.Session, error)
	initErr error
}

func (f *fakeScenario) Name() string { return f.name }
func (f *fakeScenario) Init(ctx context.Context, s *session.Session) error { return f.initErr }
func (f *fakeScenario) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	return f.runFn(ctx, s)
}

func TestExecuteBuildsUniqueSessionID(t *testing.T) {
	sc := &fakeScenario{name: "Checkout", runFn: func(ctx context.Context, s *session.Session) (*session.Session, error) {
		return s, nil
	}}
	s, err := Execute(context.Background(), sc, Options{Config: core.Config{}, MergeScenarioSessions: false})
	require.NoError(t, err)
	assert.Contains(t, s.ID, "Checkout ")
}

func TestExecuteInitErrorAborts(t *testing.T) {
	sc := &fakeScenario{name: "Checkout", initErr: errors.New("boom"), runFn: func(ctx context.Context, s *session.Session) (*session.Session, error) {
		t.Fatal("run should not be reached")
		return s, nil
	}}
	_, err := Execute(context.Background(), sc, Options{})
	require.Error(t, err)
}

func TestExecuteCollapsesMetricsToSnapshotsUnlessMerging(t *testing.T) {
	sc := &fakeScenario{name: "Checkout", runFn: func(ctx context.Context, s *session.Session) (*session.Session, error) {
		return s.RecordMetric(metrics.ActionKey("get"), 42), nil
	}}

	s, err := Execute(context.Background(), sc, Options{MergeScenarioSessions: false})
	require.NoError(t, err)
	assert.Empty(t, s.Metrics)
	require.Contains(t, s.Snapshots, metrics.ActionKey("get"))
	assert.Equal(t, int64(1), s.Snapshots[metrics.ActionKey("get")].TotalCount)

	s2, err := Execute(context.Background(), sc, Options{MergeScenarioSessions: true})
	require.NoError(t, err)
	assert.NotEmpty(t, s2.Metrics)
	assert.Empty(t, s2.Snapshots)
}

func TestExecuteDrainsAsyncTasks(t *testing.T) {
	sc := &fakeScenario{name: "Checkout", runFn: func(ctx context.Context, s *session.Session) (*session.Session, error) {
		return s.SpawnAsync(ctx, "worker-1", func(ctx context.Context, in *session.Session) (*session.Session, error) {
			return in.RecordMetric(metrics.ActionKey("tick"), 1), nil
		}), nil
	}}
	s, err := Execute(context.Background(), sc, Options{MergeScenarioSessions: true})
	require.NoError(t, err)
	assert.Empty(t, s.AsyncTasks)
	assert.NotEmpty(t, s.Metrics[metrics.ActionKey("tick")])
}
