package metrics

// Raw is the append-only sample accumulator a Session carries during
// execution (spec §3: "metrics (mapping from metric key -> list of sample
// values)"). It is never overwritten, only grown or list-merged (spec
// §3 Invariants, §4.9 preserve-vals merge).
type Raw map[Key][]int64

// Clone returns a deep-enough copy: a new top-level map whose slices are
// independently growable, matching the session's copy-on-write discipline.
func (r Raw) Clone() Raw {
	out := make(Raw, len(r))
	for k, v := range r {
		cp := make([]int64, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Record appends value to key's sample list and returns the updated map,
// leaving r itself untouched (the action drivers call this to grow a
// session's metrics without mutating the session they were handed).
func (r Raw) Record(key Key, value int64) Raw {
	out := r.Clone()
	out[key] = append(out[key], value)
	return out
}

// Merge list-concatenates two Raw maps, new samples first, matching
// spec §3's "appending a later sample produces [new | old]" and §8's
// "count(merge(s1,s2).metrics[K]) == count(s1.metrics[K]) + count(s2.metrics[K])".
func Merge(a, b Raw) Raw {
	out := a.Clone()
	for k, v := range b {
		out[k] = append(append([]int64{}, v...), out[k]...)
	}
	return out
}

// Filter is the predicate add_histogram_metrics accepts (spec §4.2). A nil
// Filter keeps every key.
type Filter func(Key) bool

// KindFilter builds a Filter that keeps only the given Kinds, matching the
// "set of allowed top-level metric types" shape options.filter may take.
func KindFilter(kinds ...Kind) Filter {
	allowed := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	return func(k Key) bool { return allowed[k.Kind] }
}

// AddHistogramMetrics is the pure function behind spec §4.2's
// add_histogram_metrics: it folds raw samples into a scratch Engine and
// returns one Snapshot per surviving key, the per-session histogram
// collapse scenario.execute step 6 performs (or the single global pass the
// load-test runner performs when merge_scenario_sessions is set, per
// spec §4.9).
func AddHistogramMetrics(raw Raw, filter Filter) map[Key]Snapshot {
	engine := NewEngine()
	for key, samples := range raw {
		if filter != nil && !filter(key) {
			continue
		}
		engine.RecordAll(key, samples)
	}
	out := make(map[Key]Snapshot, len(raw))
	for _, key := range engine.Keys() {
		out[key] = engine.Snapshot(key)
	}
	return out
}
