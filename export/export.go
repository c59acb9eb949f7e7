// Package export implements spec §4.10's exporter contract: encode
// histogrammed session metrics into a target representation, then write
// that representation to a file, remote store, or time-series backend.
package export

import (
	"context"
	"math"
	"sort"

	"github.com/stormforge/stormforge/metrics"
	"github.com/stormforge/stormforge/session"
)

// Columns is the fixed tabular/structured column order spec §6 fixes
// bit-exact: "session_action_name, total_count, max, mean, min,
// percentile_*".
var Columns = buildColumns()

func buildColumns() []string {
	cols := []string{"session_action_name", "total_count", "max", "mean", "min"}
	for _, p := range metrics.Percentiles {
		cols = append(cols, metrics.PercentileLabel(p))
	}
	return cols
}

// Record is one encoded row: a key's label, the snapshot it was built
// from, and the session name it belongs to (spec §4.10's "structured
// output ... nested by session name").
type Record struct {
	SessionName string
	Label       string
	Snapshot    metrics.Snapshot
}

// Encoder transforms a merged run's histogrammed metrics into Records,
// spec §4.10's encode operation.
type Encoder interface {
	Encode(merged *session.Merged, opts Options) ([]Record, error)
}

// Writer persists encoded data, spec §4.10's write_output operation.
type Writer interface {
	Write(ctx context.Context, loadTestName string, opts Options, data []byte) error
}

// Options configures one encode/write_output pair. Filter restricts which
// metric keys are included, matching §4.2's add_histogram_metrics options
// shape.
type Options struct {
	Filter metrics.Filter
	Path   string
}

// DefaultEncoder builds Records by iterating the merged run's raw samples,
// collapsing each into a histogram snapshot, and switching on key shape
// the way spec §4.10 describes: "(:call,(mod,func)) -> call(ShortMod.func),
// (action,url) -> action(url), bare action -> action".
type DefaultEncoder struct{}

func (DefaultEncoder) Encode(merged *session.Merged, opts Options) ([]Record, error) {
	bySessionRaw := map[string]metrics.Raw{}
	for nk, samples := range merged.Metrics {
		raw, ok := bySessionRaw[nk.Session]
		if !ok {
			raw = metrics.Raw{}
		}
		raw[nk.Key] = append(raw[nk.Key], samples...)
		bySessionRaw[nk.Session] = raw
	}

	// bySessionSnapshot holds the already-histogrammed per-key snapshots
	// ApplySnapshots installs on the default (non-merge_scenario_sessions)
	// execute() path — the common case, where Metrics is cleared and
	// Snapshots carries the real data.
	bySessionSnapshot := map[string]map[metrics.Key]metrics.Snapshot{}
	for nk, snap := range merged.Snapshots {
		if opts.Filter != nil && !opts.Filter(nk.Key) {
			continue
		}
		snaps, ok := bySessionSnapshot[nk.Session]
		if !ok {
			snaps = map[metrics.Key]metrics.Snapshot{}
		}
		snaps[nk.Key] = snap
		bySessionSnapshot[nk.Session] = snaps
	}

	sessionSet := make(map[string]bool, len(bySessionRaw)+len(bySessionSnapshot))
	for name := range bySessionRaw {
		sessionSet[name] = true
	}
	for name := range bySessionSnapshot {
		sessionSet[name] = true
	}
	sessionNames := make([]string, 0, len(sessionSet))
	for name := range sessionSet {
		sessionNames = append(sessionNames, name)
	}
	sort.Strings(sessionNames)

	var records []Record
	for _, name := range sessionNames {
		snapshots := make(map[metrics.Key]metrics.Snapshot, len(bySessionSnapshot[name]))
		for k, v := range bySessionSnapshot[name] {
			snapshots[k] = v
		}
		for k, v := range metrics.AddHistogramMetrics(bySessionRaw[name], opts.Filter) {
			snapshots[k] = v
		}

		keys := make([]metrics.Key, 0, len(snapshots))
		for k := range snapshots {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

		for _, k := range keys {
			records = append(records, Record{
				SessionName: name,
				Label:       k.String(),
				Snapshot:    snapshots[k],
			})
		}
	}
	return records, nil
}

// roundHalfToEven rounds v to the nearest integer, ties to even, matching
// spec §6's "Numeric values are rounded half-to-even to the nearest
// integer."
func roundHalfToEven(v float64) int64 {
	return int64(math.RoundToEven(v))
}
