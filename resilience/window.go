package resilience

import (
	"sync"
	"time"
)

// bucket holds one time-sliced tally of successes/failures.
type bucket struct {
	success uint64
	failure uint64
	start   time.Time
}

// slidingWindow is a fixed-size ring of time buckets used to compute a
// recent error rate without unbounded memory growth, the same rotating-
// bucket design the teacher's circuit breaker uses for its failure-rate
// window.
type slidingWindow struct {
	mu          sync.Mutex
	buckets     []bucket
	bucketSpan  time.Duration
	currentIdx  int
}

func newSlidingWindow(windowSize time.Duration, bucketCount int) *slidingWindow {
	span := windowSize / time.Duration(bucketCount)
	buckets := make([]bucket, bucketCount)
	now := time.Now()
	for i := range buckets {
		buckets[i].start = now
	}
	return &slidingWindow{buckets: buckets, bucketSpan: span}
}

// rotate advances currentIdx to the bucket covering "now", clearing any
// buckets that have aged out of the window.
func (w *slidingWindow) rotate() {
	now := time.Now()
	cur := &w.buckets[w.currentIdx]
	if now.Sub(cur.start) < w.bucketSpan {
		return
	}

	elapsedBuckets := int(now.Sub(cur.start) / w.bucketSpan)
	if elapsedBuckets > len(w.buckets) {
		elapsedBuckets = len(w.buckets)
	}
	for i := 0; i < elapsedBuckets; i++ {
		w.currentIdx = (w.currentIdx + 1) % len(w.buckets)
		w.buckets[w.currentIdx] = bucket{start: now}
	}
}

func (w *slidingWindow) recordSuccess() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotate()
	w.buckets[w.currentIdx].success++
}

func (w *slidingWindow) recordFailure() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotate()
	w.buckets[w.currentIdx].failure++
}

func (w *slidingWindow) total() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotate()
	var total uint64
	for _, b := range w.buckets {
		total += b.success + b.failure
	}
	return total
}

func (w *slidingWindow) errorRate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotate()
	var success, failure uint64
	for _, b := range w.buckets {
		success += b.success
		failure += b.failure
	}
	total := success + failure
	if total == 0 {
		return 0
	}
	return float64(failure) / float64(total)
}

func (w *slidingWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	for i := range w.buckets {
		w.buckets[i] = bucket{start: now}
	}
	w.currentIdx = 0
}
