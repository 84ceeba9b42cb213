package loadtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunner_RunStressTest_StopsAtSaturation(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "saturated", http.StatusInternalServerError)
	}))
	defer target.Close()

	r := NewRunner(nil, nil)
	results, err := r.RunStressTest(context.Background(), StressTestConfig{
		LoadTestConfig: LoadTestConfig{
			Name:            "saturation",
			TargetURL:       target.URL,
			ConcurrentUsers: 2,
		},
		MaxUsers:                     20,
		UserIncrementStep:            2,
		UserIncrementIntervalSeconds: 1,
		FailureThresholdPercent:      0,
	})
	if err != nil {
		t.Fatalf("threshold crossing is a normal stop, not an error: %v", err)
	}

	// With a zero threshold and a failing target, the first step saturates.
	if len(results) != 1 {
		t.Fatalf("expected exactly one step, got %d", len(results))
	}
	if results[0].FailedRequests == 0 {
		t.Error("expected failures in the saturating step")
	}
}

func TestRunner_RunStressTest_EscalatesToCeiling(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer target.Close()

	r := NewRunner(nil, nil)
	results, err := r.RunStressTest(context.Background(), StressTestConfig{
		LoadTestConfig: LoadTestConfig{
			Name:            "escalation",
			TargetURL:       target.URL,
			ConcurrentUsers: 1,
		},
		MaxUsers:                     2,
		UserIncrementStep:            1,
		UserIncrementIntervalSeconds: 1,
		FailureThresholdPercent:      50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 steps up to the ceiling, got %d", len(results))
	}
	for i, m := range results {
		if m.TotalRequests == 0 {
			t.Errorf("step %d issued no requests", i)
		}
		if m.TotalRequests != m.SuccessfulRequests+m.FailedRequests {
			t.Errorf("step %d invariant broken", i)
		}
	}
	if results[0].Name == results[1].Name {
		t.Error("expected step names to carry the user count")
	}

	// Steps are retained like standalone runs.
	if got := len(r.TestResults()); got != 2 {
		t.Errorf("expected 2 retained results, got %d", got)
	}
}

func TestRunner_RunStressTest_InvalidConfig(t *testing.T) {
	r := NewRunner(nil, nil)
	_, err := r.RunStressTest(context.Background(), StressTestConfig{
		LoadTestConfig: LoadTestConfig{
			TargetURL:       "http://example.com",
			ConcurrentUsers: 5,
		},
		MaxUsers:                     1,
		UserIncrementStep:            1,
		UserIncrementIntervalSeconds: 1,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRunner_RunStressTest_HonorsCancellation(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer target.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(nil, nil)
	results, err := r.RunStressTest(ctx, StressTestConfig{
		LoadTestConfig: LoadTestConfig{
			TargetURL:       target.URL,
			ConcurrentUsers: 1,
		},
		MaxUsers:                     10,
		UserIncrementStep:            1,
		UserIncrementIntervalSeconds: 1,
		FailureThresholdPercent:      100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The pre-cancelled context ends the escalation after the first step.
	if len(results) != 1 {
		t.Errorf("expected a single step under cancellation, got %d", len(results))
	}
}
