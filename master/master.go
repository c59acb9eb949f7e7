package master

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/stormforge/stormforge/core"
)

// Client is notified when a scheduled load test's driver task completes,
// spec §4.9's "reply to the client when the driver reports completion".
type Client interface {
	OnComplete(taskID string, results *Results, err error)
}

// Master is the single globally-named state machine spec §4.9 describes:
// "{id, sessions, tasks, non_worker_nodes}". One Master exists per
// StormForge process; the admin HTTP handler (admin.go) is typically the
// only caller.
type Master struct {
	ID string

	mu              sync.Mutex
	tasks           map[string]taskRecord
	nonWorkerNodes  map[string]bool

	Runner *Runner
	Logger core.Logger
}

type taskRecord struct {
	loadTest LoadTest
	client   Client
	cancel   context.CancelFunc
}

// New builds a Master with a freshly generated id.
func New(runner *Runner, logger core.Logger) *Master {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Master{
		ID:             uuid.NewString(),
		tasks:          map[string]taskRecord{},
		nonWorkerNodes: map[string]bool{},
		Runner:         runner,
		Logger:         logger,
	}
}

// Schedule spawns a driver task for lt and remembers (lt, taskID) ->
// client, replying via client.OnComplete when the driver finishes (spec
// §4.9 schedule). It returns the generated task id immediately.
func (m *Master) Schedule(ctx context.Context, lt LoadTest, client Client) string {
	taskID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.tasks[taskID] = taskRecord{loadTest: lt, client: client, cancel: cancel}
	m.mu.Unlock()

	go func() {
		runner := *m.Runner
		runner.Ignored = m.IgnoredNodes()
		for node := range m.Runner.Ignored {
			runner.Ignored[node] = true
		}
		results, err := runner.Run(runCtx, lt)
		m.mu.Lock()
		delete(m.tasks, taskID)
		m.mu.Unlock()
		if client != nil {
			client.OnComplete(taskID, results, err)
		}
	}()

	return taskID
}

// IgnoreNode marks node as ineligible for future worker placement (spec
// §4.9 ignore_node).
func (m *Master) IgnoreNode(node string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonWorkerNodes[node] = true
}

// IgnoredNodes returns a defensive copy of the non-worker node set.
func (m *Master) IgnoredNodes() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.nonWorkerNodes))
	for k := range m.nonWorkerNodes {
		out[k] = true
	}
	return out
}

// RunningLoadTests returns the currently scheduled set (spec §4.9
// running_load_tests).
func (m *Master) RunningLoadTests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tasks))
	for id, rec := range m.tasks {
		out = append(out, fmt.Sprintf("%s:%s", id, rec.loadTest.Name))
	}
	return out
}
