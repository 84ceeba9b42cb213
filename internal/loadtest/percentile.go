// internal/loadtest/percentile.go
package loadtest

import "math"

// Percentile returns the value at percentile p (0 < p <= 100) from an
// ascending-sorted sample using the nearest-rank method:
// index = ceil(p/100 * N) - 1, clamped to [0, N-1]. The index is
// non-decreasing in p, so p50 <= p95 <= p99 on any fixed sample.
// Returns 0 for an empty sample; callers skip percentile computation
// entirely when no requests completed.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
