package session

import (
	"context"
	"testing"
	"time"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAndAwaitAsyncMergesChild(t *testing.T) {
	s := New("A", core.Config{}, true)

	child := func(ctx context.Context, in *Session) (*Session, error) {
		time.Sleep(5 * time.Millisecond)
		return in.RecordMetric(metrics.ActionKey("tick"), 1), nil
	}

	s = s.SpawnAsync(context.Background(), "worker-1", child)
	require.Len(t, s.AsyncTasks["worker-1"], 1)

	merged, err := s.AwaitAsync(context.Background(), "worker-1")
	require.NoError(t, err)
	assert.Len(t, merged.Metrics[metrics.ActionKey("tick")], 1)
	assert.Empty(t, merged.AsyncTasks["worker-1"])

	// async duration also recorded under a synthetic key
	assert.NotEmpty(t, merged.Metrics[metrics.ActionKey("duration.worker-1")])
}

func TestDrainAsyncAwaitsEveryTask(t *testing.T) {
	s := New("A", core.Config{}, true)
	noop := func(ctx context.Context, in *Session) (*Session, error) { return in, nil }

	s = s.SpawnAsync(context.Background(), "t1", noop)
	s = s.SpawnAsync(context.Background(), "t2", noop)

	drained, err := s.DrainAsync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drained.AsyncTasks)
}

func TestAwaitAsyncNoPendingTasksIsNoop(t *testing.T) {
	s := New("A", core.Config{}, true)
	out, err := s.AwaitAsync(context.Background(), "missing")
	require.NoError(t, err)
	assert.Same(t, s, out)
}
