package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockChecker struct {
	result CheckResult
}

func (m mockChecker) Check(context.Context) CheckResult {
	return m.result
}

func TestProbeRunnerReady(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 0,
		mockChecker{result: CheckResult{Name: "db", Healthy: true}},
		mockChecker{result: CheckResult{Name: "redis", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatal("expected ready")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestProbeRunnerUnready(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 0,
		mockChecker{result: CheckResult{Name: "db", Healthy: true}},
		mockChecker{result: CheckResult{Name: "redis", Healthy: false, Error: errors.New("down").Error()}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

type slowChecker struct {
	delay  time.Duration
	result CheckResult
}

func (s slowChecker) Check(ctx context.Context) CheckResult {
	select {
	case <-time.After(s.delay):
		return s.result
	case <-ctx.Done():
		return CheckResult{Name: s.result.Name, Healthy: false, Error: ctx.Err().Error()}
	}
}

func TestProbeRunnerChecksRunConcurrently(t *testing.T) {
	runner := NewProbeRunner(time.Second, 0,
		slowChecker{delay: 100 * time.Millisecond, result: CheckResult{Name: "a", Healthy: true}},
		slowChecker{delay: 100 * time.Millisecond, result: CheckResult{Name: "b", Healthy: true}},
		slowChecker{delay: 100 * time.Millisecond, result: CheckResult{Name: "c", Healthy: true}},
	)
	start := time.Now()
	ready, results := runner.Ready(context.Background())
	elapsed := time.Since(start)
	if !ready {
		t.Fatal("expected ready")
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if elapsed > 250*time.Millisecond {
		t.Errorf("checks appear to run sequentially: %v", elapsed)
	}
}

func TestProbeRunnerAppliesPerCheckTimeout(t *testing.T) {
	runner := NewProbeRunner(50*time.Millisecond, 0,
		slowChecker{delay: time.Second, result: CheckResult{Name: "slow", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready when a check times out")
	}
	if len(results) != 1 || results[0].Healthy {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestProbeRunnerSkipsNilCheckers(t *testing.T) {
	runner := NewProbeRunner(time.Second, 0,
		nil,
		mockChecker{result: CheckResult{Name: "db", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatal("expected ready")
	}
	if len(results) != 1 {
		t.Fatalf("expected nil checker to be dropped, got %d results", len(results))
	}
}

func TestProbeRunnerStartupGrace(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 2*time.Second,
		mockChecker{result: CheckResult{Name: "db", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready during grace period")
	}
	if len(results) != 1 || results[0].Name != "startup_grace" {
		t.Fatalf("unexpected grace results: %+v", results)
	}
}
