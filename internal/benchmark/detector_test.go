package benchmark

import (
	"testing"

	"github.com/FairForge/loadforge/internal/loadtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steadyMetrics returns metrics where every compared quantity is stable, so
// individual tests can perturb exactly one of them.
func steadyMetrics() *loadtest.LoadTestMetrics {
	return &loadtest.LoadTestMetrics{
		TotalRequests:      1000,
		SuccessfulRequests: 1000,
		AvgResponseTimeMs:  100,
		P95ResponseTimeMs:  200,
		RequestsPerSecond:  100,
	}
}

func newDetectorWithBaseline(t *testing.T, baseline *loadtest.LoadTestMetrics) *Detector {
	t.Helper()
	store := NewStore()
	store.Save("baseline", baseline, true)
	return NewDetector(store, nil)
}

func TestDetector_EmptyStore(t *testing.T) {
	d := NewDetector(NewStore(), nil)

	det := d.DetectRegression(steadyMetrics(), "")

	assert.False(t, det.Detected)
	assert.Equal(t, SeverityNone, det.Severity)
	require.NotNil(t, det.Regressions)
	assert.Empty(t, det.Regressions)
}

func TestDetector_NoRegressionOnIdenticalMetrics(t *testing.T) {
	d := newDetectorWithBaseline(t, steadyMetrics())

	det := d.DetectRegression(steadyMetrics(), "")

	assert.False(t, det.Detected)
	assert.Equal(t, SeverityNone, det.Severity)
}

func TestDetector_AvgLatencyCritical(t *testing.T) {
	// Baseline avg 100ms, current 160ms: a 60% increase past the 20%
	// threshold, graded critical (>50).
	d := newDetectorWithBaseline(t, steadyMetrics())

	current := steadyMetrics()
	current.AvgResponseTimeMs = 160

	det := d.DetectRegression(current, "")

	require.True(t, det.Detected)
	require.Len(t, det.Regressions, 1)
	reg := det.Regressions[0]
	assert.Equal(t, MetricAvgResponseTime, reg.Metric)
	assert.InDelta(t, 60, reg.ChangePercent, 0.001)
	assert.Equal(t, float64(20), reg.Threshold)
	assert.Equal(t, SeverityCritical, det.Severity)
}

func TestDetector_AvgLatencyMinor(t *testing.T) {
	// A 25% increase crosses the 20% threshold but stays under the major
	// grade boundary of 30.
	d := newDetectorWithBaseline(t, steadyMetrics())

	current := steadyMetrics()
	current.AvgResponseTimeMs = 125

	det := d.DetectRegression(current, "")

	require.True(t, det.Detected)
	assert.Equal(t, SeverityMinor, det.Severity)
}

func TestDetector_AvgLatencyMajor(t *testing.T) {
	d := newDetectorWithBaseline(t, steadyMetrics())

	current := steadyMetrics()
	current.AvgResponseTimeMs = 140 // +40%

	det := d.DetectRegression(current, "")

	require.True(t, det.Detected)
	assert.Equal(t, SeverityMajor, det.Severity)
}

func TestDetector_P95Threshold(t *testing.T) {
	d := newDetectorWithBaseline(t, steadyMetrics())

	// +25% is exactly at the p95 threshold, so not flagged.
	atThreshold := steadyMetrics()
	atThreshold.P95ResponseTimeMs = 250
	assert.False(t, d.DetectRegression(atThreshold, "").Detected)

	over := steadyMetrics()
	over.P95ResponseTimeMs = 260 // +30%
	det := d.DetectRegression(over, "")
	require.True(t, det.Detected)
	assert.Equal(t, MetricP95ResponseTime, det.Regressions[0].Metric)
}

func TestDetector_ThroughputDrop(t *testing.T) {
	// Baseline 100 rps, current 80 rps: a -20% change below the -15
	// threshold; |−20| is under 30, so the severity is minor.
	d := newDetectorWithBaseline(t, steadyMetrics())

	current := steadyMetrics()
	current.RequestsPerSecond = 80

	det := d.DetectRegression(current, "")

	require.True(t, det.Detected)
	require.Len(t, det.Regressions, 1)
	reg := det.Regressions[0]
	assert.Equal(t, MetricRequestsPerSec, reg.Metric)
	assert.InDelta(t, -20, reg.ChangePercent, 0.001)
	assert.Equal(t, SeverityMinor, det.Severity)
}

func TestDetector_ThroughputIncreaseIsNotRegression(t *testing.T) {
	d := newDetectorWithBaseline(t, steadyMetrics())

	current := steadyMetrics()
	current.RequestsPerSecond = 500

	assert.False(t, d.DetectRegression(current, "").Detected)
}

func TestDetector_FailureRateAbsoluteDelta(t *testing.T) {
	// Baseline failure rate 1%, current 8%: a 7-point absolute delta past
	// the 5-point threshold. The relative change (700%) must not drive the
	// comparison or the severity.
	baseline := steadyMetrics()
	baseline.SuccessfulRequests = 990
	baseline.FailedRequests = 10 // 1%

	current := steadyMetrics()
	current.SuccessfulRequests = 920
	current.FailedRequests = 80 // 8%

	d := newDetectorWithBaseline(t, baseline)
	det := d.DetectRegression(current, "")

	require.True(t, det.Detected)
	require.Len(t, det.Regressions, 1)
	reg := det.Regressions[0]
	assert.Equal(t, MetricFailureRate, reg.Metric)
	assert.InDelta(t, 7, reg.ChangePercent, 0.001)
	assert.Equal(t, float64(5), reg.Threshold)
	assert.Equal(t, SeverityMinor, det.Severity, "a 7-point delta grades minor, not critical")
}

func TestDetector_ZeroBaselineRule(t *testing.T) {
	baseline := steadyMetrics()
	baseline.AvgResponseTimeMs = 0

	d := newDetectorWithBaseline(t, baseline)

	current := steadyMetrics()
	current.AvgResponseTimeMs = 10

	det := d.DetectRegression(current, "")
	require.True(t, det.Detected)
	assert.InDelta(t, 100, det.Regressions[0].ChangePercent, 0.001)
	assert.Equal(t, SeverityCritical, det.Severity)

	current.AvgResponseTimeMs = 0
	assert.False(t, d.DetectRegression(current, "").Detected,
		"zero to zero is no change")
}

func TestDetector_PrefersNamedBaseline(t *testing.T) {
	store := NewStore()

	slow := steadyMetrics()
	slow.AvgResponseTimeMs = 1000
	store.Save("slow", slow, true)
	store.Save("fast", steadyMetrics(), true)

	d := NewDetector(store, nil)

	current := steadyMetrics()
	current.AvgResponseTimeMs = 160

	// Against the first-saved (slow) baseline this is an improvement.
	assert.False(t, d.DetectRegression(current, "").Detected)
	// Against the named fast baseline it regresses.
	assert.True(t, d.DetectRegression(current, "fast").Detected)
}

func TestDetector_SeverityFromWorstFlaggedMetric(t *testing.T) {
	d := newDetectorWithBaseline(t, steadyMetrics())

	current := steadyMetrics()
	current.AvgResponseTimeMs = 125 // +25%, minor on its own
	current.RequestsPerSecond = 40  // -60%, critical
	current.P95ResponseTimeMs = 280 // +40%, major

	det := d.DetectRegression(current, "")

	require.True(t, det.Detected)
	assert.Len(t, det.Regressions, 3)
	assert.Equal(t, SeverityCritical, det.Severity)
}

func TestDetector_CustomThresholds(t *testing.T) {
	d := newDetectorWithBaseline(t, steadyMetrics())
	d.SetThresholds(Thresholds{
		AvgResponseTimePct: 50,
		P95ResponseTimePct: 50,
		ThroughputDropPct:  -50,
		FailureRatePoints:  50,
	})

	current := steadyMetrics()
	current.AvgResponseTimeMs = 125

	assert.False(t, d.DetectRegression(current, "").Detected,
		"a 25 percent change stays under a 50 percent threshold")
}
