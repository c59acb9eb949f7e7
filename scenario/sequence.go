package scenario

import (
	"context"
	"fmt"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/session"
)

// Sequence is the synthetic scenario of spec §4.3: its Run reduces a list
// [A,B,C,...] by run_scenario(A) on the starting session, forwarding the
// resulting assigned map as additional config to B, and so on.
type Sequence struct {
	NoInit
	SequenceName string
	Steps        []Scenario
}

func (q *Sequence) Name() string {
	if q.SequenceName != "" {
		return q.SequenceName
	}
	return "sequence"
}

func (q *Sequence) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	cur := s
	for i, step := range q.Steps {
		next, err := ExecuteNested(ctx, step, cur, NestedOptions{})
		if err != nil {
			return cur, fmt.Errorf("sequence step %d (%s): %w", i, step.Name(), err)
		}
		cur = next.WithConfig(assignedAsConfig(next))
	}
	return cur, nil
}

// assignedAsConfig forwards the prior step's Assigned scratch space as
// additional config for the next step, spec §4.3's "forwarding the
// resulting assigned map as additional config to B".
func assignedAsConfig(s *session.Session) core.Config {
	out := make(core.Config, len(s.Assigned))
	for k, v := range s.Assigned {
		out[k] = v
	}
	return out
}
