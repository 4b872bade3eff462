package benchmark

import (
	"slices"
	"time"
)

// Percentile positions reported for every sweep.
const (
	p50 = 0.50
	p90 = 0.90
	p99 = 0.99
)

// Result holds the timings of one benchmark sweep.
type Result struct {
	Strategy   string
	Iterations int
	Total      time.Duration
	Mean       time.Duration
	Min        time.Duration
	Max        time.Duration
	P50        time.Duration
	P90        time.Duration
	P99        time.Duration

	// NotFound counts calls that reported an unknown user.
	NotFound int
}

// MeanMillis is the mean latency per call in milliseconds.
func (r Result) MeanMillis() float64 {
	if r.Iterations == 0 {
		return 0
	}
	return float64(r.Total.Nanoseconds()) / float64(time.Millisecond) / float64(r.Iterations)
}

// collector accumulates per-call latencies of one sweep. Sweeps run on a
// single goroutine, so it needs no locking.
type collector struct {
	latencies []time.Duration
	notFound  int
}

func newCollector(capacity int) *collector {
	return &collector{latencies: make([]time.Duration, 0, capacity)}
}

// record records a single call.
func (c *collector) record(latency time.Duration, found bool) {
	c.latencies = append(c.latencies, latency)
	if !found {
		c.notFound++
	}
}

// result summarizes the recorded calls.
func (c *collector) result(strategy string) Result {
	res := Result{
		Strategy:   strategy,
		Iterations: len(c.latencies),
		NotFound:   c.notFound,
	}
	if len(c.latencies) == 0 {
		return res
	}

	sorted := slices.Clone(c.latencies)
	slices.Sort(sorted)

	for _, lat := range sorted {
		res.Total += lat
	}
	res.Mean = res.Total / time.Duration(len(sorted))
	res.Min = sorted[0]
	res.Max = sorted[len(sorted)-1]
	res.P50 = percentile(sorted, p50)
	res.P90 = percentile(sorted, p90)
	res.P99 = percentile(sorted, p99)
	return res
}

// percentile picks sorted[int(len*p)], the element just above the p
// boundary (index 50 of 100 for p50), clamped to the last element.
func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
