package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/petrijr/disparo/pkg/api"
)

func TestRunHistoryRecordsLifecycle(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	if err := eng.RegisterFunction(signupFunction()); err != nil {
		t.Fatalf("RegisterFunction failed: %v", err)
	}

	run, err := eng.Run(ctx, "signup", api.Event{
		Name: "user/signed.up",
		Data: map[string]any{"email": "alice@example.com"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	hr, ok := eng.(api.HistoryReader)
	if !ok {
		t.Fatal("expected in-memory engine to implement HistoryReader")
	}

	events, err := hr.ListRunEvents(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListRunEvents failed: %v", err)
	}

	want := []api.RunEventType{
		api.RunEventStarted,
		api.RunEventStepStarted,
		api.RunEventStepCompleted,
		api.RunEventStepStarted,
		api.RunEventStepCompleted,
		api.RunEventCompleted,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Fatalf("event %d: expected %s, got %s", i, typ, events[i].Type)
		}
	}
}

func TestRunHistoryRecordsFailure(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	def := api.FunctionDefinition{
		Name:  "doomed",
		Event: "test/doomed",
		Steps: []api.StepDefinition{
			{Name: "fail", Fn: func(ctx context.Context, input any) (any, error) {
				return nil, errors.New("no luck")
			}},
		},
	}
	if err := eng.RegisterFunction(def); err != nil {
		t.Fatalf("RegisterFunction failed: %v", err)
	}

	run, _ := eng.Run(ctx, "doomed", api.Event{Name: "test/doomed"})

	events, err := eng.(api.HistoryReader).ListRunEvents(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListRunEvents failed: %v", err)
	}

	last := events[len(events)-1]
	if last.Type != api.RunEventFailed {
		t.Fatalf("expected final event %s, got %s", api.RunEventFailed, last.Type)
	}
	if last.Detail != "no luck" {
		t.Fatalf("expected failure detail, got %q", last.Detail)
	}
}
