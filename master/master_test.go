package master

import (
	"context"
	"sync"
	"testing"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/scenario"
	"github.com/stormforge/stormforge/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopScenario struct{ scenario.NoInit }

func (noopScenario) Name() string { return "Noop" }
func (noopScenario) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	return s, nil
}

type fakeClient struct {
	mu   sync.Mutex
	done bool
	res  *Results
}

func (c *fakeClient) OnComplete(taskID string, results *Results, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
	c.res = results
}

func TestMasterScheduleNotifiesClientOnCompletion(t *testing.T) {
	runner := &Runner{}
	m := New(runner, nil)

	lt := LoadTest{
		Name: "Smoke",
		Scenarios: []ScenarioEntry{
			{Scenario: noopScenario{}, Count: 2},
		},
	}

	client := &fakeClient{}
	done := make(chan struct{})
	wrapped := onCompleteFunc(func(taskID string, results *Results, err error) {
		client.OnComplete(taskID, results, err)
		close(done)
	})

	taskID := m.Schedule(context.Background(), lt, wrapped)
	require.NotEmpty(t, taskID)
	<-done

	client.mu.Lock()
	defer client.mu.Unlock()
	require.True(t, client.done)
	require.NotNil(t, client.res)
	assert.Equal(t, "Smoke", client.res.LoadTest)
	assert.Equal(t, 0, client.res.TimedOut)
}

func TestIgnoreNodeTracksSet(t *testing.T) {
	m := New(&Runner{}, nil)
	m.IgnoreNode("bad-node")
	assert.True(t, m.IgnoredNodes()["bad-node"])
}

type onCompleteFunc func(taskID string, results *Results, err error)

func (f onCompleteFunc) OnComplete(taskID string, results *Results, err error) { f(taskID, results, err) }

var _ core.Logger = (*core.NoOpLogger)(nil)
