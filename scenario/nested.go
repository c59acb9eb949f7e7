package scenario

import (
	"context"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/session"
)

// ExecuteNested implements spec §4.3 execute_nested: reuses the caller's
// session identity (id, name, accumulated state) but swaps the active
// scenario reference for the duration of the nested run, restoring it
// afterwards. Configs are deep-merged onto the caller's unless
// NestedOptions.NoConfigMerge disables that.
type NestedOptions struct {
	Config        core.Config
	NoConfigMerge bool
	Logger        core.Logger
}

func ExecuteNested(ctx context.Context, sc Scenario, s *session.Session, opts NestedOptions) (*session.Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	callerScenario := s.Scenario
	nested := s.WithScenario(sc.Name())
	if !opts.NoConfigMerge && len(opts.Config) > 0 {
		nested = nested.WithConfig(opts.Config)
	}

	if err := sc.Init(ctx, nested); err != nil {
		logger.ErrorWithContext(ctx, "nested scenario init failed", map[string]interface{}{
			"scenario": sc.Name(), "session_id": nested.ID, "error": err.Error(),
		})
		return nested.WithScenario(callerScenario), core.NewSessionError("scenario.init_nested", nested.ID, err)
	}

	next, err := sc.Run(ctx, nested)
	if err != nil {
		return next.WithScenario(callerScenario), core.NewSessionError("scenario.run_nested", nested.ID, err)
	}
	return next.WithScenario(callerScenario), nil
}
