// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Regression RegressionConfig `yaml:"regression"`
	Alerting   AlertingConfig   `yaml:"alerting"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	LogLevel    string `yaml:"log_level"`
}

// RegressionConfig carries the per-metric regression thresholds. Latency and
// throughput thresholds are relative percent changes; the failure rate
// threshold is an absolute percentage-point delta.
type RegressionConfig struct {
	AvgResponseTimePct float64 `yaml:"avg_response_time_pct"`
	P95ResponseTimePct float64 `yaml:"p95_response_time_pct"`
	ThroughputDropPct  float64 `yaml:"throughput_drop_pct"`
	FailureRatePoints  float64 `yaml:"failure_rate_points"`
}

type AlertingConfig struct {
	Cooldown time.Duration `yaml:"cooldown"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8000,
			MetricsPort: 9090,
			LogLevel:    "info",
		},
		Regression: RegressionConfig{
			AvgResponseTimePct: 20,
			P95ResponseTimePct: 25,
			ThroughputDropPct:  -15,
			FailureRatePoints:  5,
		},
		Alerting: AlertingConfig{
			Cooldown: 5 * time.Minute,
		},
	}
}

// Load reads configuration from a YAML file, layered over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
