// internal/benchmark/detector.go
package benchmark

import (
	"math"

	"github.com/FairForge/loadforge/internal/loadtest"
	"go.uber.org/zap"
)

// Severities
const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Severity classifies how far a run has regressed from baseline.
type Severity string

// Metric names used in regression records.
const (
	MetricAvgResponseTime = "Average Response Time"
	MetricP95ResponseTime = "P95 Response Time"
	MetricRequestsPerSec  = "Requests Per Second"
	MetricFailureRate     = "Failure Rate"
)

// Thresholds holds the per-metric regression limits. Latency and throughput
// compare relative percent change; the failure rate compares an absolute
// percentage-point delta, because a relative change on a near-zero baseline
// failure rate is numerically unstable.
type Thresholds struct {
	AvgResponseTimePct float64 // flag when relative change exceeds this
	P95ResponseTimePct float64 // flag when relative change exceeds this
	ThroughputDropPct  float64 // flag when relative change falls below this (negative)
	FailureRatePoints  float64 // flag when the point delta exceeds this
}

// DefaultThresholds returns the standard regression limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AvgResponseTimePct: 20,
		P95ResponseTimePct: 25,
		ThroughputDropPct:  -15,
		FailureRatePoints:  5,
	}
}

// MetricRegression records one metric that crossed its threshold.
type MetricRegression struct {
	Metric        string  `json:"metric"`
	BaselineValue float64 `json:"baseline_value"`
	CurrentValue  float64 `json:"current_value"`
	ChangePercent float64 `json:"change_percent"`
	Threshold     float64 `json:"threshold"`
}

// RegressionDetection is the stateless result of one comparison. It is
// computed fresh on every call and never persisted.
type RegressionDetection struct {
	Detected    bool               `json:"detected"`
	Severity    Severity           `json:"severity"`
	Regressions []MetricRegression `json:"regressions"`
}

// Detector compares run metrics against stored baselines.
type Detector struct {
	store      *Store
	thresholds Thresholds
	logger     *zap.Logger
}

// NewDetector creates a detector reading baselines from store.
func NewDetector(store *Store, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{store: store, thresholds: DefaultThresholds(), logger: logger}
}

// SetThresholds replaces the regression limits.
func (d *Detector) SetThresholds(t Thresholds) {
	d.thresholds = t
}

// DetectRegression compares current metrics against a baseline benchmark,
// preferring one named baselineName when given. It never fails: with no
// baseline in the store the result is simply "no regression detected".
func (d *Detector) DetectRegression(current *loadtest.LoadTestMetrics, baselineName string) RegressionDetection {
	detection := RegressionDetection{
		Severity:    SeverityNone,
		Regressions: make([]MetricRegression, 0),
	}

	baseline := d.store.FindBaseline(baselineName)
	if baseline == nil {
		return detection
	}
	base := baseline.Metrics

	if chg := relativeChange(base.AvgResponseTimeMs, current.AvgResponseTimeMs); chg > d.thresholds.AvgResponseTimePct {
		detection.Regressions = append(detection.Regressions, MetricRegression{
			Metric:        MetricAvgResponseTime,
			BaselineValue: base.AvgResponseTimeMs,
			CurrentValue:  current.AvgResponseTimeMs,
			ChangePercent: chg,
			Threshold:     d.thresholds.AvgResponseTimePct,
		})
	}

	if chg := relativeChange(base.P95ResponseTimeMs, current.P95ResponseTimeMs); chg > d.thresholds.P95ResponseTimePct {
		detection.Regressions = append(detection.Regressions, MetricRegression{
			Metric:        MetricP95ResponseTime,
			BaselineValue: base.P95ResponseTimeMs,
			CurrentValue:  current.P95ResponseTimeMs,
			ChangePercent: chg,
			Threshold:     d.thresholds.P95ResponseTimePct,
		})
	}

	// Throughput regresses when it drops, so the threshold is negative.
	if chg := relativeChange(base.RequestsPerSecond, current.RequestsPerSecond); chg < d.thresholds.ThroughputDropPct {
		detection.Regressions = append(detection.Regressions, MetricRegression{
			Metric:        MetricRequestsPerSec,
			BaselineValue: base.RequestsPerSecond,
			CurrentValue:  current.RequestsPerSecond,
			ChangePercent: chg,
			Threshold:     d.thresholds.ThroughputDropPct,
		})
	}

	// Failure rate uses an absolute percentage-point delta, not a relative
	// change.
	baseRate := base.FailureRatePercent()
	currentRate := current.FailureRatePercent()
	if delta := currentRate - baseRate; delta > d.thresholds.FailureRatePoints {
		detection.Regressions = append(detection.Regressions, MetricRegression{
			Metric:        MetricFailureRate,
			BaselineValue: baseRate,
			CurrentValue:  currentRate,
			ChangePercent: delta,
			Threshold:     d.thresholds.FailureRatePoints,
		})
	}

	if len(detection.Regressions) > 0 {
		detection.Detected = true
		detection.Severity = classifySeverity(detection.Regressions)
		d.logger.Warn("performance regression detected",
			zap.String("baseline", baseline.Name),
			zap.String("severity", string(detection.Severity)),
			zap.Int("metrics", len(detection.Regressions)))
	}

	return detection
}

// relativeChange returns the percent change from baseline to current.
// A zero baseline yields 100 when current is positive, else 0.
func relativeChange(baseline, current float64) float64 {
	if baseline == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - baseline) / baseline * 100
}

// classifySeverity grades by the largest absolute change among the flagged
// metrics: >50 critical, >30 major, else minor.
func classifySeverity(regressions []MetricRegression) Severity {
	var worst float64
	for _, reg := range regressions {
		if chg := math.Abs(reg.ChangePercent); chg > worst {
			worst = chg
		}
	}
	switch {
	case worst > 50:
		return SeverityCritical
	case worst > 30:
		return SeverityMajor
	default:
		return SeverityMinor
	}
}
