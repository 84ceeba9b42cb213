// internal/benchmark/store.go
package benchmark

import (
	"sync"
	"time"

	"github.com/FairForge/loadforge/internal/loadtest"
	"github.com/google/uuid"
)

// PerformanceBenchmark is an immutable named snapshot of a run's metrics.
// Any number of benchmarks may be flagged as baseline simultaneously.
type PerformanceBenchmark struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Timestamp time.Time                `json:"timestamp"`
	Metrics   loadtest.LoadTestMetrics `json:"metrics"`
	Baseline  bool                     `json:"baseline"`
}

// Store holds benchmarks in memory, in insertion order. State is volatile
// and scoped to the process lifetime.
type Store struct {
	mu         sync.RWMutex
	benchmarks []*PerformanceBenchmark
}

// NewStore creates an empty benchmark store.
func NewStore() *Store {
	return &Store{benchmarks: make([]*PerformanceBenchmark, 0)}
}

// Save records an immutable snapshot of metrics under a generated ID.
// Uniqueness of names or baseline flags is not enforced.
func (s *Store) Save(name string, metrics *loadtest.LoadTestMetrics, baseline bool) *PerformanceBenchmark {
	b := &PerformanceBenchmark{
		ID:        uuid.NewString(),
		Name:      name,
		Timestamp: time.Now(),
		Metrics:   *metrics,
		Baseline:  baseline,
	}
	b.Metrics.Errors = append([]loadtest.ErrorRecord(nil), metrics.Errors...)

	s.mu.Lock()
	s.benchmarks = append(s.benchmarks, b)
	s.mu.Unlock()
	return b
}

// Benchmarks returns all stored benchmarks in insertion order.
func (s *Store) Benchmarks() []*PerformanceBenchmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*PerformanceBenchmark(nil), s.benchmarks...)
}

// FindBaseline locates a benchmark flagged as baseline, preferring one whose
// name matches when a name is given. Falls back to the earliest-saved
// baseline. Returns nil when no baseline exists.
func (s *Store) FindBaseline(name string) *PerformanceBenchmark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var first *PerformanceBenchmark
	for _, b := range s.benchmarks {
		if !b.Baseline {
			continue
		}
		if name != "" && b.Name == name {
			return b
		}
		if first == nil {
			first = b
		}
	}
	return first
}

// Clear drops every stored benchmark.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benchmarks = make([]*PerformanceBenchmark, 0)
}
