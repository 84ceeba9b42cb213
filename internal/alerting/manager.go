// internal/alerting/manager.go
package alerting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/FairForge/loadforge/internal/benchmark"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Alert is the structured handoff produced when a regression is detected.
// Delivery channels (console, email, webhook) live behind Notifier.
type Alert struct {
	ID          string                       `json:"id"`
	TestID      string                       `json:"test_id"`
	Severity    benchmark.Severity           `json:"severity"`
	Message     string                       `json:"message"`
	Regressions []benchmark.MetricRegression `json:"regressions"`
	FiredAt     time.Time                    `json:"fired_at"`
}

// Notifier delivers an alert over one channel.
type Notifier interface {
	Notify(ctx context.Context, alert *Alert) error
}

// ManagerConfig configures alert dispatch.
type ManagerConfig struct {
	// Cooldown suppresses repeat alerts of the same severity fired within
	// the window. Zero disables throttling.
	Cooldown time.Duration `json:"cooldown"`
}

// Manager throttles regression alerts by severity and fans them out to the
// registered notifiers.
type Manager struct {
	config    ManagerConfig
	logger    *zap.Logger
	mu        sync.Mutex
	notifiers []Notifier
	lastFired map[benchmark.Severity]time.Time
}

// NewManager creates an alert manager.
func NewManager(config ManagerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		config:    config,
		logger:    logger,
		lastFired: make(map[benchmark.Severity]time.Time),
	}
}

// AddNotifier registers a delivery channel.
func (m *Manager) AddNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

// HandleDetection fires an alert for a detected regression and reports
// whether one was dispatched. Detections without a regression, and repeats
// of the same severity inside the cooldown window, are dropped.
func (m *Manager) HandleDetection(ctx context.Context, testID string, detection benchmark.RegressionDetection) bool {
	if !detection.Detected {
		return false
	}

	m.mu.Lock()
	if m.config.Cooldown > 0 {
		if last, ok := m.lastFired[detection.Severity]; ok && time.Since(last) < m.config.Cooldown {
			m.mu.Unlock()
			m.logger.Debug("regression alert throttled",
				zap.String("test_id", testID),
				zap.String("severity", string(detection.Severity)))
			return false
		}
	}
	m.lastFired[detection.Severity] = time.Now()
	notifiers := append([]Notifier(nil), m.notifiers...)
	m.mu.Unlock()

	alert := &Alert{
		ID:          uuid.NewString(),
		TestID:      testID,
		Severity:    detection.Severity,
		Message:     buildMessage(detection),
		Regressions: detection.Regressions,
		FiredAt:     time.Now(),
	}

	for _, n := range notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			m.logger.Error("alert delivery failed",
				zap.String("alert_id", alert.ID),
				zap.Error(err))
		}
	}
	return true
}

func buildMessage(detection benchmark.RegressionDetection) string {
	parts := make([]string, 0, len(detection.Regressions))
	for _, reg := range detection.Regressions {
		parts = append(parts, fmt.Sprintf("%s %.1f -> %.1f (%+.1f%%)",
			reg.Metric, reg.BaselineValue, reg.CurrentValue, reg.ChangePercent))
	}
	return fmt.Sprintf("performance regression (%s): %s",
		detection.Severity, strings.Join(parts, "; "))
}

// LogNotifier writes alerts to the structured log. It is the default
// delivery channel when no external one is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, alert *Alert) error {
	n.logger.Warn("regression alert",
		zap.String("alert_id", alert.ID),
		zap.String("test_id", alert.TestID),
		zap.String("severity", string(alert.Severity)),
		zap.String("message", alert.Message))
	return nil
}
