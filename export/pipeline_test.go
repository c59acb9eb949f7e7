package export_test

import (
	"context"
	"testing"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/export"
	"github.com/stormforge/stormforge/metrics"
	"github.com/stormforge/stormforge/scenario"
	"github.com/stormforge/stormforge/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingScenario records a handful of action samples and satisfies
// scenario.Scenario with no init step.
type recordingScenario struct {
	scenario.NoInit
}

func (recordingScenario) Name() string { return "Pipeline.record" }

func (recordingScenario) Run(_ context.Context, s *session.Session) (*session.Session, error) {
	s = s.RecordMetric(metrics.ActionKey("get"), 10)
	s = s.RecordMetric(metrics.ActionKey("get"), 20)
	s = s.RecordMetric(metrics.ActionKey("get"), 30)
	return s, nil
}

// TestDefaultConfigPipelineProducesRecords runs scenario.Execute with the
// default config (merge_scenario_sessions unset), so execute() collapses
// the session's raw samples into Snapshots before MergeAll and Encode see
// it. This is the path session.ApplySnapshots empties Metrics on, so the
// exporter must read Snapshots or it silently produces zero records.
func TestDefaultConfigPipelineProducesRecords(t *testing.T) {
	s, err := scenario.Execute(context.Background(), recordingScenario{}, scenario.Options{
		Config: core.Config{},
	})
	require.NoError(t, err)
	assert.Empty(t, s.Metrics[metrics.ActionKey("get")], "execute() should have cleared raw samples into Snapshots")

	merged := session.MergeAll([]*session.Session{s}, 0)

	records, err := (export.DefaultEncoder{}).Encode(merged, export.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, records, "default-config run must not be metrics-free end-to-end")

	found := false
	for _, r := range records {
		if r.SessionName == "Pipeline.record" && r.Snapshot.TotalCount == 3 {
			found = true
		}
	}
	assert.True(t, found, "expected a record carrying the 3 recorded samples, got %+v", records)
}
