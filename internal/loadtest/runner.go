// internal/loadtest/runner.go
package loadtest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Runner executes load tests. One Runner per process; construct it at
// application start and inject it into consumers. Concurrent runs with
// distinct test IDs are independent. All registries are in-memory and
// volatile.
type Runner struct {
	client *http.Client
	logger *zap.Logger

	mu      sync.Mutex
	active  map[string]context.CancelFunc
	results map[string]*accumulator
	order   []string // result insertion order
}

// NewRunner creates a runner. A nil client falls back to a default with no
// per-request timeout; the transport is treated as a black box.
func NewRunner(client *http.Client, logger *zap.Logger) *Runner {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		client:  client,
		logger:  logger,
		active:  make(map[string]context.CancelFunc),
		results: make(map[string]*accumulator),
	}
}

// RunLoadTest executes one complete run and returns finalized metrics.
// It fails only on configuration errors; per-request failures are recorded
// in the metrics, never returned. The run can be interrupted out-of-band
// via StopTest or StopAllTests.
func (r *Runner) RunLoadTest(ctx context.Context, cfg LoadTestConfig) (*LoadTestMetrics, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	testID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	acc := newAccumulator(testID, &cfg, start)

	r.mu.Lock()
	r.active[testID] = cancel
	r.results[testID] = acc
	r.order = append(r.order, testID)
	r.mu.Unlock()

	// The active-run entry must go away on every exit path.
	defer func() {
		r.mu.Lock()
		delete(r.active, testID)
		r.mu.Unlock()
	}()

	r.logger.Info("load test started",
		zap.String("test_id", testID),
		zap.String("target", cfg.TargetURL),
		zap.Int("users", cfg.ConcurrentUsers),
		zap.Int("duration_seconds", cfg.DurationSeconds))

	var limiter *rate.Limiter
	if cfg.MaxRequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSecond), cfg.MaxRequestsPerSecond)
	}

	endTime := start.Add(time.Duration(cfg.DurationSeconds) * time.Second)
	rampUp := time.Duration(cfg.RampUpSeconds) * time.Second

	var wg sync.WaitGroup
	for i := 0; i < cfg.ConcurrentUsers; i++ {
		user := &virtualUser{cfg: &cfg, client: r.client, limiter: limiter, acc: acc}
		delay := rampDelay(i, cfg.ConcurrentUsers, rampUp)

		wg.Add(1)
		go func() {
			defer wg.Done()
			user.run(runCtx, delay, endTime)
		}()
	}
	wg.Wait()

	// A final in-flight request per user is not preempted, so the actual
	// elapsed time may exceed the configured duration.
	acc.finalize(time.Now())
	metrics := acc.snapshot()

	// Re-register in case the results registry was cleared mid-run.
	r.mu.Lock()
	if _, ok := r.results[testID]; !ok {
		r.results[testID] = acc
		r.order = append(r.order, testID)
	}
	r.mu.Unlock()

	r.logger.Info("load test complete",
		zap.String("test_id", testID),
		zap.Int64("requests", metrics.TotalRequests),
		zap.Int64("failed", metrics.FailedRequests),
		zap.Float64("rps", metrics.RequestsPerSecond))

	return metrics, nil
}

// StopTest cancels the run with the given test ID. It reports whether a
// matching active run existed. Requests aborted by the stop are not counted
// as failures.
func (r *Runner) StopTest(testID string) bool {
	r.mu.Lock()
	cancel, ok := r.active[testID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	cancel()
	r.logger.Info("load test stopped", zap.String("test_id", testID))
	return true
}

// StopAllTests cancels every active run.
func (r *Runner) StopAllTests() {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.active))
	for _, cancel := range r.active {
		cancels = append(cancels, cancel)
	}
	count := len(cancels)
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if count > 0 {
		r.logger.Info("all load tests stopped", zap.Int("count", count))
	}
}

// ActiveTests returns the IDs of runs currently executing.
func (r *Runner) ActiveTests() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	return ids
}

// TestResult returns the metrics for one run, live counters included while
// the run is still executing. The second return reports existence.
func (r *Runner) TestResult(testID string) (*LoadTestMetrics, bool) {
	r.mu.Lock()
	acc, ok := r.results[testID]
	r.mu.Unlock()

	if !ok {
		return nil, false
	}
	return acc.snapshot(), true
}

// TestResults returns all retained run metrics in start order.
func (r *Runner) TestResults() []*LoadTestMetrics {
	r.mu.Lock()
	accs := make([]*accumulator, 0, len(r.order))
	for _, id := range r.order {
		if acc, ok := r.results[id]; ok {
			accs = append(accs, acc)
		}
	}
	r.mu.Unlock()

	out := make([]*LoadTestMetrics, 0, len(accs))
	for _, acc := range accs {
		out = append(out, acc.snapshot())
	}
	return out
}

// ClearResults drops all retained run metrics. Active runs keep executing
// and re-register their results on completion.
func (r *Runner) ClearResults() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = make(map[string]*accumulator)
	r.order = nil
}
