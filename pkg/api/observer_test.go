package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestBasicMetricsSnapshot(t *testing.T) {
	ctx := context.Background()
	m := &BasicMetrics{}

	run := &FunctionRun{ID: "r1", Function: "fn"}

	m.OnRunStart(ctx, run)
	m.OnRunStart(ctx, run)
	m.OnRunCompleted(ctx, run)
	m.OnRunFailed(ctx, run, errors.New("boom"))
	m.OnStepCompleted(ctx, run, "step", 0, nil, 10*time.Millisecond)
	m.OnStepCompleted(ctx, run, "step", 0, nil, 30*time.Millisecond)
	m.OnStepCompleted(ctx, run, "step", 0, errors.New("boom"), time.Second)

	snap := m.Snapshot()
	if snap.RunsStarted != 2 {
		t.Fatalf("expected 2 started, got %d", snap.RunsStarted)
	}
	if snap.RunsCompleted != 1 || snap.RunsFailed != 1 {
		t.Fatalf("unexpected completion counters: %+v", snap)
	}
	if snap.StepsCompleted != 2 {
		t.Fatalf("expected 2 successful steps, got %d", snap.StepsCompleted)
	}
	if snap.AvgStepDuration != 20*time.Millisecond {
		t.Fatalf("expected avg 20ms, got %v", snap.AvgStepDuration)
	}
}

func TestCompositeObserverFansOut(t *testing.T) {
	ctx := context.Background()

	a := &BasicMetrics{}
	b := &BasicMetrics{}
	comp := NewCompositeObserver(a, b)

	run := &FunctionRun{ID: "r1", Function: "fn"}
	comp.OnRunStart(ctx, run)
	comp.OnRunCompleted(ctx, run)

	for _, m := range []*BasicMetrics{a, b} {
		snap := m.Snapshot()
		if snap.RunsStarted != 1 || snap.RunsCompleted != 1 {
			t.Fatalf("expected fan-out to both observers, got %+v", snap)
		}
	}
}

func TestLoggingObserverEmitsRunEvents(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := NewLoggingObserver(logger)

	run := &FunctionRun{ID: "r1", Function: "fn", Event: Event{Name: "evt"}}

	obs.OnRunStart(ctx, run)
	obs.OnStepStart(ctx, run, "step-a", 0)
	obs.OnStepCompleted(ctx, run, "step-a", 0, nil, time.Millisecond)
	obs.OnRunCompleted(ctx, run)
	obs.OnRunFailed(ctx, run, errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"run_start", "step_start", "step_completed", "run_completed", "run_failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
}
