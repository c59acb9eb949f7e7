// Package action implements the scenario-facing operations that mutate a
// session as a load test runs: HTTP and WebSocket requests, timing
// primitives, and the async/control-flow combinators (spec §4.4–§4.7).
package action

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/metrics"
	"github.com/stormforge/stormforge/session"
	"github.com/stormforge/stormforge/telemetry"
)

var tracer = otel.Tracer("stormforge/action")

// Action is one polymorphic unit of work a scenario's run function can
// invoke through RunAction. HTTPAction, connect/send/recv WebSocket
// actions, Loop, Delay, Call, Async, SpreadAsync, and RunScenario all
// implement it.
type Action interface {
	Run(ctx context.Context, s *session.Session) (*session.Session, error)
	// Name identifies the action for error logging, e.g. "http.GET" or
	// "ws.connect".
	Name() string
}

// RunAction is the spec §4.4 dispatch contract: a cancelled session is
// left untouched; an action error is logged and recorded under
// errors[action] but does not abort the pipeline, since the action itself
// decides whether a failure should propagate further (an action that
// wants to abort the whole run does so by returning a cancelled session).
func RunAction(ctx context.Context, s *session.Session, a Action, logger core.Logger) *session.Session {
	if s.IsCancelled() {
		return s
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	ctx, span := tracer.Start(ctx, a.Name())
	defer span.End()

	next, err := a.Run(ctx, s)
	if err != nil {
		telemetry.AnnotateSpanError(ctx, err)
		logger.ErrorWithContext(ctx, "action failed", map[string]interface{}{
			"action":     a.Name(),
			"session_id": s.ID,
			"error":      err.Error(),
		})
		return s.RecordError(metrics.ActionKey(a.Name()), err)
	}
	return next
}
