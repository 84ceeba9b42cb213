// internal/loadtest/metrics.go
package loadtest

import (
	"math"
	"sort"
	"sync"
	"time"
)

// ErrorRecord captures one failed request. Records are append-only.
type ErrorRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
}

// LoadTestMetrics is the aggregate for one run. Counters satisfy
// TotalRequests == SuccessfulRequests + FailedRequests at all times, and
// once finalized Min <= P50 <= P95 <= P99 <= Max whenever TotalRequests > 0.
type LoadTestMetrics struct {
	TestID          string    `json:"test_id"`
	Name            string    `json:"name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int       `json:"duration_seconds"`

	TotalRequests      int64 `json:"total_requests"`
	SuccessfulRequests int64 `json:"successful_requests"`
	FailedRequests     int64 `json:"failed_requests"`

	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	MinResponseTimeMs float64 `json:"min_response_time_ms"`
	MaxResponseTimeMs float64 `json:"max_response_time_ms"`
	P50ResponseTimeMs float64 `json:"p50_response_time_ms"`
	P95ResponseTimeMs float64 `json:"p95_response_time_ms"`
	P99ResponseTimeMs float64 `json:"p99_response_time_ms"`

	RequestsPerSecond float64 `json:"requests_per_second"`
	ErrorsPerSecond   float64 `json:"errors_per_second"`
	ThroughputKBps    float64 `json:"throughput_kbps"`

	Errors []ErrorRecord `json:"errors"`
}

// FailureRatePercent returns failed requests as a percentage of the total.
func (m *LoadTestMetrics) FailureRatePercent() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.FailedRequests) / float64(m.TotalRequests) * 100
}

// accumulator is the shared sink every virtual user of one run writes into.
// One mutex covers counters, the response-time sample, the byte counter and
// the error list so the counter invariant holds at every observable instant.
type accumulator struct {
	mu        sync.Mutex
	metrics   *LoadTestMetrics
	samples   []float64 // response times, ms
	bytesRecv int64
	finalized bool
}

func newAccumulator(testID string, cfg *LoadTestConfig, start time.Time) *accumulator {
	return &accumulator{
		metrics: &LoadTestMetrics{
			TestID:            testID,
			Name:              cfg.Name,
			StartTime:         start,
			DurationSeconds:   cfg.DurationSeconds,
			MinResponseTimeMs: math.Inf(1),
			Errors:            make([]ErrorRecord, 0),
		},
		samples: make([]float64, 0, 1024),
	}
}

// record adds one completed request. errRec nil means success; bytes is the
// response content length when the server reported one, zero otherwise.
func (a *accumulator) record(sampleMs float64, bytes int64, errRec *ErrorRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.metrics
	m.TotalRequests++
	a.samples = append(a.samples, sampleMs)
	a.bytesRecv += bytes

	if sampleMs < m.MinResponseTimeMs {
		m.MinResponseTimeMs = sampleMs
	}
	if sampleMs > m.MaxResponseTimeMs {
		m.MaxResponseTimeMs = sampleMs
	}

	if errRec != nil {
		m.FailedRequests++
		m.Errors = append(m.Errors, *errRec)
	} else {
		m.SuccessfulRequests++
	}
}

// snapshot returns a copy safe to hand out while users are still writing.
// An infinite minimum (no samples yet) is presented as zero.
func (a *accumulator) snapshot() *LoadTestMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	copied := *a.metrics
	copied.Errors = append([]ErrorRecord(nil), a.metrics.Errors...)
	if math.IsInf(copied.MinResponseTimeMs, 1) {
		copied.MinResponseTimeMs = 0
	}
	return &copied
}

// finalize fixes the aggregate exactly once: rates derive from actual
// elapsed wall time, latency statistics from a single sort of the sample.
func (a *accumulator) finalize(end time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return
	}
	a.finalized = true

	m := a.metrics
	m.EndTime = end

	elapsed := end.Sub(m.StartTime).Seconds()
	if elapsed > 0 {
		m.RequestsPerSecond = float64(m.TotalRequests) / elapsed
		m.ErrorsPerSecond = float64(m.FailedRequests) / elapsed
		m.ThroughputKBps = float64(a.bytesRecv) / 1024 / elapsed
	}

	if len(a.samples) == 0 {
		m.MinResponseTimeMs = 0
		m.MaxResponseTimeMs = 0
		return
	}

	sorted := append([]float64(nil), a.samples...)
	sort.Float64s(sorted)

	var sum float64
	for _, s := range sorted {
		sum += s
	}
	m.AvgResponseTimeMs = sum / float64(len(sorted))
	m.MinResponseTimeMs = sorted[0]
	m.MaxResponseTimeMs = sorted[len(sorted)-1]
	m.P50ResponseTimeMs = Percentile(sorted, 50)
	m.P95ResponseTimeMs = Percentile(sorted, 95)
	m.P99ResponseTimeMs = Percentile(sorted, 99)
}
