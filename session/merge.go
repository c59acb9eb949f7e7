package session

import (
	"github.com/stormforge/stormforge/metrics"
)

// mergeRaw implements spec §3's "preserve_vals_merge": a key present in
// only one side is kept, a key present in both is concatenated with the
// new values prepended (metrics.Merge already does exactly this).
func mergeRaw(a, b metrics.Raw) metrics.Raw {
	return metrics.Merge(a, b)
}

func mergeResults(a, b map[metrics.Key][]interface{}) map[metrics.Key][]interface{} {
	out := make(map[metrics.Key][]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = append([]interface{}{}, v...)
	}
	for k, v := range b {
		out[k] = append(append([]interface{}{}, v...), out[k]...)
	}
	return out
}

func mergeErrors(a, b map[metrics.Key][]error) map[metrics.Key][]error {
	out := make(map[metrics.Key][]error, len(a)+len(b))
	for k, v := range a {
		out[k] = append([]error{}, v...)
	}
	for k, v := range b {
		out[k] = append(append([]error{}, v...), out[k]...)
	}
	return out
}

// NamedKey scopes a metric key to the session name it came from, the
// result of spec §4.9's prepare_merge: "wraps each metric/result/error
// with the session's name" before the load-test runner folds many
// workers' sessions together.
type NamedKey struct {
	Session string
	Key     metrics.Key
}

// Merged is the combined state of many workers' sessions, the input to
// the exporters (spec §4.10). TimedOut counts workers the join policy
// force-killed (spec §4.8).
//
// Metrics carries raw samples, present when a session ran with
// merge_scenario_sessions set (so execute() skipped the histogram-snapshot
// step, spec §4.3 step 6). Snapshots carries the already-collapsed
// per-key histograms that ApplySnapshots installs for the default (non-
// merge_scenario_sessions) path — the common case — so exporters must
// consult both.
type Merged struct {
	Metrics   map[NamedKey][]int64
	Snapshots map[NamedKey]metrics.Snapshot
	Results   map[NamedKey][]interface{}
	Errors    map[NamedKey][]error
	Cookies   []string
	TimedOut  int
}

// PrepareMerge name-scopes one session's metrics/snapshots/results/errors
// ahead of merging it with others, spec §4.9's prepare_merge step.
func PrepareMerge(s *Session) *Merged {
	m := &Merged{
		Metrics:   make(map[NamedKey][]int64, len(s.Metrics)),
		Snapshots: make(map[NamedKey]metrics.Snapshot, len(s.Snapshots)),
		Results:   make(map[NamedKey][]interface{}, len(s.Results)),
		Errors:    make(map[NamedKey][]error, len(s.Errors)),
		Cookies:   append([]string{}, s.Cookies...),
	}
	for k, v := range s.Metrics {
		m.Metrics[NamedKey{s.Name, k}] = append([]int64{}, v...)
	}
	for k, v := range s.Snapshots {
		m.Snapshots[NamedKey{s.Name, k}] = v
	}
	for k, v := range s.Results {
		m.Results[NamedKey{s.Name, k}] = append([]interface{}{}, v...)
	}
	for k, v := range s.Errors {
		m.Errors[NamedKey{s.Name, k}] = append([]error{}, v...)
	}
	return m
}

// MergeAll folds many sessions into one Merged value via preserve_vals_merge
// (spec §4.9). An empty slice returns an empty Merged; callers are expected
// to log a warning in that case, matching spec's "empty set → empty Session
// with a warning".
func MergeAll(sessions []*Session, timedOut int) *Merged {
	out := &Merged{
		Metrics:   map[NamedKey][]int64{},
		Snapshots: map[NamedKey]metrics.Snapshot{},
		Results:   map[NamedKey][]interface{}{},
		Errors:    map[NamedKey][]error{},
		TimedOut:  timedOut,
	}
	for _, s := range sessions {
		prepared := PrepareMerge(s)
		for k, v := range prepared.Metrics {
			out.Metrics[k] = append(append([]int64{}, v...), out.Metrics[k]...)
		}
		for k, v := range prepared.Snapshots {
			out.Snapshots[k] = v
		}
		for k, v := range prepared.Results {
			out.Results[k] = append(append([]interface{}{}, v...), out.Results[k]...)
		}
		for k, v := range prepared.Errors {
			out.Errors[k] = append(append([]error{}, v...), out.Errors[k]...)
		}
		out.Cookies = append(out.Cookies, prepared.Cookies...)
	}
	return out
}
