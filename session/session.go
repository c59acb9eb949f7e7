// Package session implements the immutable Session carrier of spec §3: the
// value threaded through one scenario execution, its functional update
// helpers, async child-task bookkeeping, and the terminal merge step that
// combines many workers' sessions into one.
package session

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/metrics"
)

// ParentHandle identifies the parent worker a child session should signal,
// the spec §3 "parent_pid" field. Root sessions carry a nil ParentHandle.
type ParentHandle interface {
	Signal(sig Signal)
}

// Signal is a typed message delivered FIFO to a task's parent (spec §5
// "Signals delivered to a task are FIFO").
type Signal struct {
	Kind    string
	Payload interface{}
}

// Session is the immutable value passed through the action pipeline (spec
// §3). Every mutator on Session (see config.go, metrics.go, cookies.go,
// async.go, cancellation.go) returns a new *Session; the receiver is never
// modified, so a Session can be safely handed to concurrent async children
// without synchronization as long as each child owns its own copy from
// that point on (spec §3 Invariants: "Ownership").
type Session struct {
	ID       string
	Name     string
	Scenario string
	Config   core.Config
	Assigned core.Config

	Results map[metrics.Key][]interface{}
	Metrics metrics.Raw
	// Snapshots holds the per-key histogram snapshots produced by
	// add_histogram_metrics (spec §4.2/§4.3 step 6). It is nil throughout
	// execution and populated once, at the point the raw Metrics are
	// collapsed — see DESIGN.md's note on why this is a separate field
	// rather than a union with Metrics.
	Snapshots map[metrics.Key]metrics.Snapshot
	Errors    map[metrics.Key][]error

	AsyncTasks map[string][]*TaskHandle
	Cookies    []string

	Parent       ParentHandle
	Cancellation *string
}

// New builds the initial Session for one scenario execution (spec §4.3
// execute step 1). id is "<ScenarioName> <UUID>" unless
// mergeScenarioSessions is set, in which case id is just the scenario
// name, and config.session_name (if present) overrides Name, per spec §9
// Open Questions ("config.session_name wins").
func New(scenarioName string, cfg core.Config, mergeScenarioSessions bool) *Session {
	id := scenarioName
	if !mergeScenarioSessions {
		id = fmt.Sprintf("%s %s", scenarioName, uuid.NewString())
	}
	name := id
	if override, err := core.Lookup(cfg, "session_name", ""); err == nil {
		if s, ok := override.(string); ok && s != "" {
			name = s
		}
	}
	return &Session{
		ID:         id,
		Name:       name,
		Scenario:   scenarioName,
		Config:     cfg,
		Assigned:   core.Config{},
		Results:    map[metrics.Key][]interface{}{},
		Metrics:    metrics.Raw{},
		Errors:     map[metrics.Key][]error{},
		AsyncTasks: map[string][]*TaskHandle{},
		Cookies:    nil,
	}
}

// clone returns a shallow copy of s; callers install their own change on
// top of the copy before returning it, matching the immutable-update
// pattern used throughout this package.
func (s *Session) clone() *Session {
	out := *s
	return &out
}

// WithScenario returns a copy of s with Scenario swapped to name, the
// mechanism execute_nested (spec §4.3) uses to run a different scenario's
// Init/Run under the caller's existing session identity, restoring the
// original afterwards.
func (s *Session) WithScenario(name string) *Session {
	out := s.clone()
	out.Scenario = name
	return out
}

// StoreResultsEnabled reports whether config.store_results is truthy,
// gating §4.5's "store response in results only if store_results is
// enabled".
func (s *Session) StoreResultsEnabled() bool {
	v, err := core.Lookup(s.Config, "store_results", s.ID, false)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}
