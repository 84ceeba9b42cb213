// cmd/loadforge/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FairForge/loadforge/internal/alerting"
	"github.com/FairForge/loadforge/internal/api"
	"github.com/FairForge/loadforge/internal/benchmark"
	"github.com/FairForge/loadforge/internal/config"
	"github.com/FairForge/loadforge/internal/loadtest"
	"github.com/FairForge/loadforge/internal/telemetry"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadforge: %v\n", err)
		os.Exit(1)
	}
	config.LoadFromEnv(cfg)

	logger := newLogger(cfg.Server.LogLevel)
	defer func() { _ = logger.Sync() }()

	// One engine per process; everything downstream gets it injected.
	runner := loadtest.NewRunner(&http.Client{}, logger)
	store := benchmark.NewStore()

	detector := benchmark.NewDetector(store, logger)
	detector.SetThresholds(benchmark.Thresholds{
		AvgResponseTimePct: cfg.Regression.AvgResponseTimePct,
		P95ResponseTimePct: cfg.Regression.P95ResponseTimePct,
		ThroughputDropPct:  cfg.Regression.ThroughputDropPct,
		FailureRatePoints:  cfg.Regression.FailureRatePoints,
	})

	alerts := alerting.NewManager(alerting.ManagerConfig{Cooldown: cfg.Alerting.Cooldown}, logger)
	alerts.AddNotifier(alerting.NewLogNotifier(logger))

	collector := telemetry.NewCollector()

	server := api.NewServer(cfg, logger, runner, store, detector, alerts, collector)

	metricsServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:     telemetry.Handler(),
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	// Handle shutdown gracefully
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		_ = metricsServer.Shutdown(ctx)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
		os.Exit(0)
	}()

	logger.Info("loadforge started",
		zap.Int("port", cfg.Server.Port),
		zap.Int("metrics_port", cfg.Server.MetricsPort))

	if err := server.Start(); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zapCfg.Level = lvl
	}
	logger, err := zapCfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}
