// Package timer provides a stopwatch with an accumulator and, in extended
// mode, a retained sample vector for percentile/min/max/std-dev reporting.
//
// Extraction and verification matching time their engine calls with a Timer
// so that a single report format covers both. Identification search
// (internal/identdriver) does not time its engine calls.
package timer

import (
	"math"
	"time"
)

// Timer is a cycle-based stopwatch. A cycle is Start() followed by Stop().
// Stop returns and accumulates the elapsed interval. In extended mode every
// interval is additionally retained for ExtendedInfo.
type Timer struct {
	extended bool
	started  time.Time
	running  bool

	acc   time.Duration
	count int

	samples []time.Duration
}

// New returns a Timer. When extended is true, every Stop() interval is kept
// for later use by ExtendedInfo.
func New(extended bool) *Timer {
	return &Timer{extended: extended}
}

// Start begins a timing cycle.
func (t *Timer) Start() {
	t.started = time.Now()
	t.running = true
}

// Stop ends the current timing cycle, returning the elapsed interval and
// folding it into the accumulator (and, in extended mode, the sample
// vector).
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.started)
	t.running = false
	t.acc += d
	t.count++
	if t.extended {
		t.samples = append(t.samples, d)
	}
	return d
}

// Samples returns the retained interval samples collected so far in
// extended mode (nil otherwise). The caller must not mutate the result.
func (t *Timer) Samples() []time.Duration { return t.samples }

// Average is the sentinel returned by Average when no cycle has completed.
const Average_None time.Duration = -1

// Average returns acc/count and resets the accumulator. Returns Average_None
// when count == 0.
func (t *Timer) Average() time.Duration {
	if t.count == 0 {
		return Average_None
	}
	avg := t.acc / time.Duration(t.count)
	t.acc = 0
	t.count = 0
	return avg
}

// ExtendedInfo summarizes the retained samples at percentile p (p in [0,1])
// using the ceil(n*p)-th order statistic (1-based), computed via
// nth-element partitioning rather than a full sort. It then clears the
// sample vector — a call to ExtendedInfo and a subsequent call to Average
// observe independent reductions over the same underlying stream and must
// not be chained expecting one to see the other's data.
//
// Required for n>1; otherwise returns the all-sentinel ExtendedStats.
func (t *Timer) ExtendedInfo(p float64) ExtendedStats {
	samples := t.samples
	t.samples = nil
	return ExtendedInfoOf(samples, p)
}

// ExtendedInfoOf computes the same summary as Timer.ExtendedInfo directly
// over an arbitrary sample set — used to merge samples collected by several
// Timers (e.g. one per worker) into a single report.
//
// Required for n>1; otherwise returns the all-sentinel ExtendedStats.
func ExtendedInfoOf(samples []time.Duration, p float64) ExtendedStats {
	n := len(samples)
	if n <= 1 {
		return ExtendedStats{
			Percentile:    p,
			PercentileVal: Average_None,
			Min:           Average_None,
			Max:           Average_None,
			StdDev:        -1,
		}
	}

	work := make([]time.Duration, n)
	copy(work, samples)

	k := int(math.Ceil(float64(n) * p))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	percentileVal := quickselect(work, k-1)

	min, max := samples[0], samples[0]
	var sum, sumSq float64
	for _, s := range samples {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
		sum += float64(s)
	}
	mean := sum / float64(n)
	for _, s := range samples {
		d := float64(s) - mean
		sumSq += d * d
	}
	stdDev := math.Sqrt(sumSq / float64(n-1)) // Bessel-corrected (sample) std dev

	return ExtendedStats{
		Percentile:    p,
		PercentileVal: percentileVal,
		Min:           min,
		Max:           max,
		StdDev:        stdDev,
	}
}

// ExtendedStats is the result of ExtendedInfo.
type ExtendedStats struct {
	Percentile    float64
	PercentileVal time.Duration
	Min           time.Duration
	Max           time.Duration
	StdDev        float64
}
