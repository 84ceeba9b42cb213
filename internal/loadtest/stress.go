// internal/loadtest/stress.go
package loadtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RunStressTest escalates load in steps until the target saturates. Starting
// at the configured user count, each step runs a full load test for the
// increment interval, then the user count grows by the increment step. The
// loop ends when a step's failure rate exceeds the threshold (a normal,
// informative stop), when MaxUsers is exhausted, or when ctx is cancelled.
// Step metrics are returned in order; every step is also retained in the
// results registry like any standalone run.
func (r *Runner) RunStressTest(ctx context.Context, cfg StressTestConfig) ([]*LoadTestMetrics, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.logger.Info("stress test started",
		zap.String("target", cfg.TargetURL),
		zap.Int("initial_users", cfg.ConcurrentUsers),
		zap.Int("max_users", cfg.MaxUsers),
		zap.Float64("failure_threshold_pct", cfg.FailureThresholdPercent))

	results := make([]*LoadTestMetrics, 0)

	for users := cfg.ConcurrentUsers; users <= cfg.MaxUsers; users += cfg.UserIncrementStep {
		step := cfg.LoadTestConfig
		step.Name = fmt.Sprintf("%s [%d users]", cfg.Name, users)
		step.DurationSeconds = cfg.UserIncrementIntervalSeconds
		step.ConcurrentUsers = users

		metrics, err := r.RunLoadTest(ctx, step)
		if err != nil {
			return results, err
		}
		results = append(results, metrics)

		failureRate := metrics.FailureRatePercent()
		if failureRate > cfg.FailureThresholdPercent {
			r.logger.Info("stress test reached saturation",
				zap.Int("users", users),
				zap.Float64("failure_rate_pct", failureRate))
			break
		}

		if ctx.Err() != nil {
			break
		}
	}

	r.logger.Info("stress test complete", zap.Int("steps", len(results)))
	return results, nil
}
