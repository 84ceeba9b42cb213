// internal/telemetry/collector.go
package telemetry

import (
	"net/http"
	"time"

	"github.com/FairForge/loadforge/internal/loadtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadforge_runs_total",
			Help: "Total number of load test runs executed",
		},
		[]string{"kind"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loadforge_run_duration_seconds",
			Help:    "Actual wall-clock duration of load test runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	activeRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loadforge_runs_active",
			Help: "Number of load test runs currently executing",
		},
	)

	// Request metrics, aggregated per run
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadforge_requests_total",
			Help: "Total requests issued against targets",
		},
		[]string{"result"},
	)

	// Regression metrics
	regressionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadforge_regressions_detected_total",
			Help: "Total regression detections by severity",
		},
		[]string{"severity"},
	)
)

// Collector records engine activity into Prometheus metrics.
type Collector struct {
	startTime time.Time
}

// NewCollector creates a metrics collector.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// RunStarted marks a run as active. Balance with RunFinished.
func (c *Collector) RunStarted() {
	activeRuns.Inc()
}

// RunFinished marks a run as no longer active, whatever its outcome.
func (c *Collector) RunFinished() {
	activeRuns.Dec()
}

// RecordRun records a finished run's aggregates. kind is "load" or "stress".
func (c *Collector) RecordRun(kind string, m *loadtest.LoadTestMetrics) {
	runsTotal.WithLabelValues(kind).Inc()
	if !m.EndTime.IsZero() {
		runDuration.Observe(m.EndTime.Sub(m.StartTime).Seconds())
	}
	requestsTotal.WithLabelValues("success").Add(float64(m.SuccessfulRequests))
	requestsTotal.WithLabelValues("failure").Add(float64(m.FailedRequests))
}

// RegressionDetected counts a detection by severity.
func (c *Collector) RegressionDetected(severity string) {
	regressionsTotal.WithLabelValues(severity).Inc()
}

// Uptime returns time since the collector was created.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
