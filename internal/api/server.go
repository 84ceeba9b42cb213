// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/FairForge/loadforge/internal/alerting"
	"github.com/FairForge/loadforge/internal/benchmark"
	"github.com/FairForge/loadforge/internal/config"
	"github.com/FairForge/loadforge/internal/loadtest"
	"github.com/FairForge/loadforge/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Server exposes the engine to the dashboard over HTTP.
type Server struct {
	config    *config.Config
	logger    *zap.Logger
	runner    *loadtest.Runner
	store     *benchmark.Store
	detector  *benchmark.Detector
	alerts    *alerting.Manager
	collector *telemetry.Collector

	router     chi.Router
	httpServer *http.Server
	startTime  time.Time
}

// NewServer wires the engine components behind the HTTP API.
func NewServer(cfg *config.Config, logger *zap.Logger, runner *loadtest.Runner,
	store *benchmark.Store, detector *benchmark.Detector, alerts *alerting.Manager,
	collector *telemetry.Collector) *Server {

	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:    cfg,
		logger:    logger,
		runner:    runner,
		store:     store,
		detector:  detector,
		alerts:    alerts,
		collector: collector,
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}

	s.setupRoutes()

	// Run endpoints hold the response open for the whole test, so the
	// server carries no write timeout.
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/loadtests", s.handleRunLoadTest)
		r.Post("/stresstests", s.handleRunStressTest)
		r.Get("/loadtests/active", s.handleActiveTests)
		r.Post("/loadtests/{id}/stop", s.handleStopTest)
		r.Post("/loadtests/stop-all", s.handleStopAll)

		r.Get("/results", s.handleListResults)
		r.Get("/results/{id}", s.handleGetResult)
		r.Delete("/results", s.handleClearResults)

		r.Post("/benchmarks", s.handleSaveBenchmark)
		r.Get("/benchmarks", s.handleListBenchmarks)
		r.Delete("/benchmarks", s.handleClearBenchmarks)

		r.Post("/regressions/detect", s.handleDetectRegression)
	})
}

// Router returns the HTTP handler, used directly in tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("api server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops all active runs and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.runner.StopAllTests()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"uptime":      time.Since(s.startTime).Seconds(),
		"active_runs": len(s.runner.ActiveTests()),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version": "0.1.0",
		"go":      runtime.Version(),
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
