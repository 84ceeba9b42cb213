// internal/config/env.go
package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv overrides configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	if port := os.Getenv("LOADFORGE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if port := os.Getenv("LOADFORGE_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.MetricsPort = p
		}
	}

	if logLevel := os.Getenv("LOADFORGE_LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}

	if cooldown := os.Getenv("LOADFORGE_ALERT_COOLDOWN"); cooldown != "" {
		if d, err := time.ParseDuration(cooldown); err == nil {
			cfg.Alerting.Cooldown = d
		}
	}
}

// GetEnvOrDefault returns environment variable or default value.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
