// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/FairForge/loadforge/internal/benchmark"
	"github.com/FairForge/loadforge/internal/loadtest"
	"github.com/go-chi/chi/v5"
)

// handleRunLoadTest executes one load test synchronously and returns the
// finalized metrics. The run can be interrupted via the stop endpoints;
// its ID is visible under /loadtests/active while it executes.
func (s *Server) handleRunLoadTest(w http.ResponseWriter, r *http.Request) {
	var cfg loadtest.LoadTestConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("api: decode config: %w", err))
		return
	}

	s.collector.RunStarted()
	defer s.collector.RunFinished()

	metrics, err := s.runner.RunLoadTest(r.Context(), cfg)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.collector.RecordRun("load", metrics)

	s.writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleRunStressTest(w http.ResponseWriter, r *http.Request) {
	var cfg loadtest.StressTestConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("api: decode config: %w", err))
		return
	}

	s.collector.RunStarted()
	defer s.collector.RunFinished()

	results, err := s.runner.RunStressTest(r.Context(), cfg)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	for _, m := range results {
		s.collector.RecordRun("stress", m)
	}

	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleActiveTests(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"active": s.runner.ActiveTests(),
	})
}

func (s *Server) handleStopTest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stopped := s.runner.StopTest(id)
	if !stopped {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("api: no active test %s", id))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"stopped": true})
}

func (s *Server) handleStopAll(w http.ResponseWriter, _ *http.Request) {
	s.runner.StopAllTests()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListResults(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.runner.TestResults())
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	metrics, ok := s.runner.TestResult(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("api: no result for test %s", id))
		return
	}
	s.writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleClearResults(w http.ResponseWriter, _ *http.Request) {
	s.runner.ClearResults()
	w.WriteHeader(http.StatusNoContent)
}

// saveBenchmarkRequest names a retained result and optionally flags it as a
// baseline for future comparisons.
type saveBenchmarkRequest struct {
	Name     string `json:"name"`
	TestID   string `json:"test_id"`
	Baseline bool   `json:"baseline"`
}

func (s *Server) handleSaveBenchmark(w http.ResponseWriter, r *http.Request) {
	var req saveBenchmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("api: decode request: %w", err))
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("api: benchmark name is required"))
		return
	}

	metrics, ok := s.runner.TestResult(req.TestID)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("api: no result for test %s", req.TestID))
		return
	}

	b := s.store.Save(req.Name, metrics, req.Baseline)
	s.writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBenchmarks(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Benchmarks())
}

func (s *Server) handleClearBenchmarks(w http.ResponseWriter, _ *http.Request) {
	s.store.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// detectRegressionRequest compares a retained result against a baseline.
type detectRegressionRequest struct {
	TestID       string `json:"test_id"`
	BaselineName string `json:"baseline_name,omitempty"`
}

// detectRegressionResponse pairs the detection with whether an alert was
// handed off to the alerting collaborator.
type detectRegressionResponse struct {
	benchmark.RegressionDetection
	Alerted bool `json:"alerted"`
}

func (s *Server) handleDetectRegression(w http.ResponseWriter, r *http.Request) {
	var req detectRegressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("api: decode request: %w", err))
		return
	}

	metrics, ok := s.runner.TestResult(req.TestID)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("api: no result for test %s", req.TestID))
		return
	}

	detection := s.detector.DetectRegression(metrics, req.BaselineName)

	alerted := false
	if detection.Detected {
		s.collector.RegressionDetected(string(detection.Severity))
		alerted = s.alerts.HandleDetection(r.Context(), req.TestID, detection)
	}

	s.writeJSON(w, http.StatusOK, detectRegressionResponse{
		RegressionDetection: detection,
		Alerted:             alerted,
	})
}
