package core

import (
	"math/rand"
	"time"
)

// Unit multipliers for composing durations the way scenario configs express
// them (spec §4.1): Seconds(5) reads as "5 seconds" and returns milliseconds
// since every duration in the system is a non-negative millisecond integer.
const (
	Milliseconds int64 = 1
	Seconds            = 1000 * Milliseconds
	Minutes            = 60 * Seconds
	Hours              = 60 * Minutes
	Days               = 24 * Hours
	Weeks              = 7 * Days
)

// Timestamp returns a monotonic instant in milliseconds, used to compute
// elapsed durations for histogram samples and Loop bounds. It is not a wall
// clock; only differences between two calls are meaningful.
func Timestamp() int64 {
	return time.Since(processStart).Milliseconds()
}

// processStart anchors Timestamp; time.Since reads Go's monotonic clock.
var processStart = time.Now()

// RandomDuration selects a uniform value in the closed range [lo, hi],
// inclusive on both ends, matching spec §4.1's "(random, N)" duration shape
// and config's "random_delay" key (whose range is [1, N]).
func RandomDuration(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + rand.Int63n(hi-lo+1)
}

// RandomUpTo selects a uniform value in [1, n]. n <= 0 returns 0, matching
// the "no delay" case for an unset random_delay.
func RandomUpTo(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return RandomDuration(1, n)
}

// Elapsed returns Timestamp() - start, the idiom used throughout the action
// drivers to record a duration sample.
func Elapsed(start int64) int64 {
	return Timestamp() - start
}
