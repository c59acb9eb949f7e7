package metrics

import (
	"sort"
	"sync"

	"github.com/codahale/hdrhistogram"
)

// Bounds and precision from spec §4.2. Any equivalent HDR-style structure
// is acceptable per the spec; this one is github.com/codahale/hdrhistogram.
const (
	MinValue       = 1
	MaxValue       = 10_000_000
	SigFigs        = 3
)

// Percentiles is the fixed percentile set spec §4.2 requires every
// snapshot to carry, in export order.
var Percentiles = []float64{10, 20, 30, 40, 50, 60, 75, 80, 85, 90, 95, 99, 99.9, 99.99, 99.999}

// PercentileLabel renders a percentile the way export column headers do:
// "percentile_10" .. "percentile_99_999".
func PercentileLabel(p float64) string {
	s := trimFloat(p)
	return "percentile_" + s
}

func trimFloat(p float64) string {
	// p is one of the fixed Percentiles values; render with '.' -> '_' and
	// no trailing ".0" for whole numbers.
	whole := int64(p)
	if float64(whole) == p {
		return itoa(whole)
	}
	frac := p - float64(whole)
	// up to 3 decimal digits (99.999 is the finest percentile used)
	digits := itoa(int64(frac*1000 + 0.5))
	for len(digits) < 3 {
		digits = "0" + digits
	}
	for len(digits) > 1 && digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
	}
	return itoa(whole) + "_" + digits
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Snapshot is the structure add_histogram_metrics installs per key: total
// count plus the fixed percentile set, matching spec §4.2 and the export
// column list in spec §6.
type Snapshot struct {
	TotalCount  int64
	Min         int64
	Mean        float64
	Max         int64
	Percentiles map[float64]int64
}

// PercentileValue returns the recorded value at percentile p, or 0 if p is
// not one of the tracked Percentiles.
func (s Snapshot) PercentileValue(p float64) int64 {
	return s.Percentiles[p]
}

// Engine maintains one histogram per distinct Key (spec §4.2). It is safe
// for concurrent use: each worker's action drivers record samples while
// the engine may be snapshotted or reset from another goroutine (e.g. the
// master coordinating run completion).
type Engine struct {
	mu         sync.Mutex
	histograms map[Key]*hdrhistogram.Histogram
}

// NewEngine builds an empty Engine.
func NewEngine() *Engine {
	return &Engine{histograms: make(map[Key]*hdrhistogram.Histogram)}
}

// Record absorbs one sample for key. Values below MinValue are clamped to
// MinValue rather than rejected, since a 0ms action is a legitimate (if
// unusual) sample and the histogram's floor is an implementation bound,
// not a domain one.
func (e *Engine) Record(key Key, value int64) {
	if value < MinValue {
		value = MinValue
	}
	if value > MaxValue {
		value = MaxValue
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.histograms[key]
	if !ok {
		h = hdrhistogram.New(MinValue, MaxValue, SigFigs)
		e.histograms[key] = h
	}
	_ = h.RecordValue(value)
}

// RecordAll absorbs every sample in values for key.
func (e *Engine) RecordAll(key Key, values []int64) {
	for _, v := range values {
		e.Record(key, v)
	}
}

// Snapshot extracts the current distribution for key. The zero Snapshot
// (TotalCount 0) is returned for an unknown key.
func (e *Engine) Snapshot(key Key) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.histograms[key]
	if !ok {
		return Snapshot{Percentiles: map[float64]int64{}}
	}
	return snapshotOf(h)
}

func snapshotOf(h *hdrhistogram.Histogram) Snapshot {
	pcts := make(map[float64]int64, len(Percentiles))
	for _, p := range Percentiles {
		pcts[p] = h.ValueAtQuantile(p)
	}
	return Snapshot{
		TotalCount:  h.TotalCount(),
		Min:         h.Min(),
		Mean:        h.Mean(),
		Max:         h.Max(),
		Percentiles: pcts,
	}
}

// Keys returns every key currently holding samples, sorted by printed form
// for deterministic iteration (spec §9 Open Questions: "specify a
// deterministic sort (lexicographic on the printed form)").
func (e *Engine) Keys() []Key {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]Key, 0, len(e.histograms))
	for k := range e.histograms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Reset clears every histogram, isolating one run's aggregation from the
// next (spec §5 "Shared resources").
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.histograms = make(map[Key]*hdrhistogram.Histogram)
}
