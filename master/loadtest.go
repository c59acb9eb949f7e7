// Package master implements spec §4.9: the Master coordinator, the
// LoadTest runner that expands scenario definitions into workers and
// merges their sessions, and (in admin.go) the reference HTTP
// administration surface of spec §6.
package master

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stormforge/stormforge/cluster"
	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/scenario"
	"github.com/stormforge/stormforge/session"
	"github.com/stormforge/stormforge/telemetry"
	"github.com/stormforge/stormforge/worker"
)

// ScenarioEntry is one element of a LoadTest's scenarios list: which
// scenario to run, how many copies, its own config overrides, and an
// optional explicit name override (spec §4.9 step 1: "Names default to
// '<Module>/<UUID>' and may be overridden by the entry's explicit name").
type ScenarioEntry struct {
	Scenario scenario.Scenario
	Count    int
	Config   core.Config
	Name     string
	Timeout  time.Duration
}

// LoadTest is the top-level unit the admin API schedules: a named set of
// scenario entries sharing one default config.
type LoadTest struct {
	Name          string
	DefaultConfig core.Config
	Scenarios     []ScenarioEntry
}

// Results is spec §4.9 step 4's record: "{load_test, start_ms, end_ms,
// duration_ms, sessions, max_timeout, timed_out}".
type Results struct {
	LoadTest   string
	StartMS    int64
	EndMS      int64
	DurationMS int64
	Merged     *session.Merged
	MaxTimeout time.Duration
	TimedOut   int
}

// Runner expands a LoadTest into concrete workers, starts them, awaits
// them under the bounded-timeout join policy, and merges the results.
type Runner struct {
	Registry cluster.Registry
	Self     cluster.Node
	Ignored  map[string]bool
	Logger   core.Logger
}

// Run implements spec §4.9 steps 1-4.
func (r *Runner) Run(ctx context.Context, lt LoadTest) (*Results, error) {
	logger := r.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	ctx = telemetry.WithBaggage(ctx, "load_test", lt.Name)

	peers, err := r.peers(ctx)
	if err != nil {
		logger.WarnWithContext(ctx, "cluster peers unavailable, running single-node", map[string]interface{}{
			"load_test": lt.Name, "error": err.Error(),
		})
	}
	nodes := worker.EligibleNodes(r.Self, peers, r.Ignored)

	var handles []*worker.Handle
	var timeouts []time.Duration

	start := core.Timestamp()
	for _, entry := range lt.Scenarios {
		count := entry.Count
		if count <= 0 {
			count = 1
		}
		placements := worker.PlaceRoundRobin(nodes, count)

		merged := core.DeepMerge(lt.DefaultConfig, entry.Config)
		for i := 0; i < count; i++ {
			name := entry.Name
			if name == "" {
				name = fmt.Sprintf("%s/%s", entry.Scenario.Name(), uuid.NewString())
			}
			id := fmt.Sprintf("%s-%d", name, i)

			node := r.Self
			if len(placements) > 0 {
				node = placements[i]
			}

			cfg := worker.Config{
				Scenario: entry.Scenario,
				Options: scenario.Options{
					Config:                merged,
					MergeScenarioSessions: truthy(merged, "merge_scenario_sessions"),
					Logger:                logger,
				},
				Timeout: entry.Timeout,
				Node:    node,
			}
			handles = append(handles, worker.Start(ctx, id, cfg))
			timeouts = append(timeouts, entry.Timeout)
		}
	}

	joinResult := worker.Await(ctx, handles, timeouts, logger)
	end := core.Timestamp()

	var merged *session.Merged
	if len(joinResult.Sessions) == 0 {
		logger.WarnWithContext(ctx, "load test produced no sessions", map[string]interface{}{"load_test": lt.Name})
		merged = session.MergeAll(nil, joinResult.TimedOut)
	} else {
		merged = session.MergeAll(joinResult.Sessions, joinResult.TimedOut)
	}

	return &Results{
		LoadTest:   lt.Name,
		StartMS:    start,
		EndMS:      end,
		DurationMS: end - start,
		Merged:     merged,
		MaxTimeout: joinResult.MaxTimeout,
		TimedOut:   joinResult.TimedOut,
	}, nil
}

func (r *Runner) peers(ctx context.Context) ([]cluster.Node, error) {
	if r.Registry == nil {
		return nil, nil
	}
	return r.Registry.Peers(ctx)
}

func truthy(cfg core.Config, key string) bool {
	v, err := core.Lookup(cfg, key, "", false)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}
