package session

import "github.com/stormforge/stormforge/metrics"

// RecordMetric appends one sample under key, honoring the cancellation
// short-circuit (spec §3 Invariants: "once cancellation is set ... no
// further side effects"). It applies no filter: every key is recorded,
// whatever the config's "metrics" entry holds.
func (s *Session) RecordMetric(key metrics.Key, value int64) *Session {
	if s.IsCancelled() {
		return s
	}
	out := s.clone()
	out.Metrics = s.Metrics.Record(key, value)
	return out
}

// RecordAsyncMetric unwraps an (async, name, value) sample as spec §4.2
// describes ("Samples that arrive with shape (async, name, value) are
// unwrapped before recording") and records it under a synthetic key
// scoping the async task's own duration, namely "duration.<name>".
func (s *Session) RecordAsyncMetric(name string, value int64) *Session {
	return s.RecordMetric(metrics.ActionKey("duration."+name), value)
}

// RecordResult appends value under key in Results, but only when
// store_results is enabled (spec §4.5).
func (s *Session) RecordResult(key metrics.Key, value interface{}) *Session {
	if s.IsCancelled() || !s.StoreResultsEnabled() {
		return s
	}
	out := s.clone()
	results := make(map[metrics.Key][]interface{}, len(s.Results))
	for k, v := range s.Results {
		results[k] = append([]interface{}{}, v...)
	}
	results[key] = append(results[key], value)
	out.Results = results
	return out
}

// RecordError appends err under key in Errors. run_action (spec §4.4)
// calls this on driver failure while returning the session otherwise
// unchanged, so the pipeline continues.
func (s *Session) RecordError(key metrics.Key, err error) *Session {
	out := s.clone()
	errs := make(map[metrics.Key][]error, len(s.Errors))
	for k, v := range s.Errors {
		errs[k] = append([]error{}, v...)
	}
	errs[key] = append(errs[key], err)
	out.Errors = errs
	return out
}

// ApplySnapshots collapses s's raw Metrics into per-key histogram
// snapshots (spec §4.2 add_histogram_metrics / §4.3 execute step 6),
// clearing Metrics so the session carries only the aggregate from this
// point forward.
func (s *Session) ApplySnapshots(snapshots map[metrics.Key]metrics.Snapshot) *Session {
	out := s.clone()
	out.Snapshots = snapshots
	out.Metrics = metrics.Raw{}
	return out
}

// HasErrors reports whether any action has recorded an error, the
// condition scenario authors check before calling Cancel(reason) to
// implement "opt into abort" (spec §7 Propagation policy).
func (s *Session) HasErrors() bool {
	return len(s.Errors) > 0
}
