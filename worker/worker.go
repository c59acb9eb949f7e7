// Package worker implements spec §4.8's Worker & Supervisor model: a
// timeout-bounded task placed on a cluster node, and the join policy that
// awaits many such tasks under a bounded timeout.
package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/stormforge/stormforge/cluster"
	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/scenario"
	"github.com/stormforge/stormforge/session"
)

// Config is one worker's execution parameters: which scenario to run, its
// config, and an optional per-worker timeout (zero means unbounded).
type Config struct {
	Scenario scenario.Scenario
	Options  scenario.Options
	Timeout  time.Duration
	Node     cluster.Node
}

// Handle is the running (or completed) worker task spec §4.8 names "a
// worker is a timeout-bounded task". Grounded on
// itsneelabh-gomind/core/async_task.go's handle-plus-channel shape,
// adapted from a single background task primitive into the load-test
// runner's per-scenario worker unit.
type Handle struct {
	ID     string
	Node   cluster.Node
	done   chan result
	cancel context.CancelFunc
}

type result struct {
	session *session.Session
	err     error
}

// Start launches one worker running cfg.Scenario against a fresh session,
// bounded by cfg.Timeout if set.
func Start(ctx context.Context, id string, cfg Config) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	if cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
	}

	h := &Handle{ID: id, Node: cfg.Node, done: make(chan result, 1), cancel: cancel}
	go func() {
		s, err := scenario.Execute(runCtx, cfg.Scenario, cfg.Options)
		h.done <- result{session: s, err: err}
	}()
	return h
}

// Await blocks until the worker finishes or ctx is done.
func (h *Handle) Await(ctx context.Context) (*session.Session, error) {
	select {
	case r := <-h.done:
		return r.session, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel aborts the worker's context; its Run loop observes this at the
// next suspension point (spec §5's cooperative cancellation).
func (h *Handle) Cancel() { h.cancel() }

// PlaceRoundRobin returns n node assignments cycling through nodes in
// order, spec §4.8's "n worker handles placed round-robin over the list of
// known nodes".
func PlaceRoundRobin(nodes []cluster.Node, n int) []cluster.Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]cluster.Node, n)
	for i := 0; i < n; i++ {
		out[i] = nodes[i%len(nodes)]
	}
	return out
}

// PlaceRandom returns one randomly chosen node, spec §4.8's single-worker
// placement variant.
func PlaceRandom(nodes []cluster.Node) (cluster.Node, bool) {
	if len(nodes) == 0 {
		return cluster.Node{}, false
	}
	return nodes[rand.Intn(len(nodes))], true
}

// EligibleNodes computes {self} ∪ peers \ ignored, spec §4.8's "The node
// set is {self} ∪ connected_peers \ ignored_nodes".
func EligibleNodes(self cluster.Node, peers []cluster.Node, ignored map[string]bool) []cluster.Node {
	seen := map[string]bool{self.ID: true}
	out := []cluster.Node{self}
	for _, p := range peers {
		if ignored[p.ID] || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	if ignored[self.ID] {
		return out[1:]
	}
	return out
}

// AwaitResult is the triple spec §4.8's await_workers returns: (max_timeout,
// completed sessions, timed-out count).
type AwaitResult struct {
	MaxTimeout time.Duration
	Sessions   []*session.Session
	TimedOut   int
}

// Await implements spec §4.8's join policy: if any worker is unbounded
// (Timeout==0), await all unbounded; else yield-many with the maximum
// per-worker timeout, killing stragglers and counting them as timed_out.
func Await(ctx context.Context, handles []*Handle, timeouts []time.Duration, logger core.Logger) AwaitResult {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	var maxTimeout time.Duration
	unbounded := false
	for _, t := range timeouts {
		if t == 0 {
			unbounded = true
			continue
		}
		if t > maxTimeout {
			maxTimeout = t
		}
	}

	joinCtx := ctx
	var cancel context.CancelFunc
	if !unbounded && maxTimeout > 0 {
		joinCtx, cancel = context.WithTimeout(ctx, maxTimeout)
		defer cancel()
	}

	sessions := make([]*session.Session, 0, len(handles))
	timedOut := 0
	for _, h := range handles {
		s, err := h.Await(joinCtx)
		if err != nil {
			h.Cancel()
			timedOut++
			logger.WarnWithContext(ctx, "worker timed out", map[string]interface{}{
				"worker": h.ID, "node": h.Node.ID,
			})
			continue
		}
		sessions = append(sessions, s)
	}

	return AwaitResult{MaxTimeout: maxTimeout, Sessions: sessions, TimedOut: timedOut}
}
