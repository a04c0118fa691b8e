package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/petrijr/disparo/pkg/api"
)

func sampleRun(id, function, event string, status api.Status) *api.FunctionRun {
	return &api.FunctionRun{
		ID:        id,
		Function:  function,
		Event:     api.Event{Name: event, Data: map[string]any{"k": "v"}},
		Status:    status,
		CreatedAt: time.Now(),
	}
}

func TestInMemoryStoreSaveAndGet(t *testing.T) {
	store := NewInMemoryStore()

	run := sampleRun("r1", "fn", "evt/name", api.StatusPending)
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun("r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.ID != "r1" || got.Function != "fn" || got.Event.Name != "evt/name" {
		t.Fatalf("unexpected run: %+v", got)
	}

	// The store must hand out copies, not its internal pointer.
	got.Status = api.StatusCompleted
	again, err := store.GetRun("r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if again.Status != api.StatusPending {
		t.Fatalf("mutating a returned run leaked into the store: %q", again.Status)
	}
}

func TestInMemoryStoreGetMissing(t *testing.T) {
	store := NewInMemoryStore()
	if _, err := store.GetRun("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestInMemoryStoreUpdate(t *testing.T) {
	store := NewInMemoryStore()

	run := sampleRun("r1", "fn", "evt", api.StatusPending)
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	run.Status = api.StatusCompleted
	run.Output = "result"
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	got, err := store.GetRun("r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != api.StatusCompleted || got.Output != "result" {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestInMemoryStoreListOrderAndFilter(t *testing.T) {
	store := NewInMemoryStore()

	for i := 0; i < 4; i++ {
		status := api.StatusCompleted
		if i%2 == 1 {
			status = api.StatusFailed
		}
		run := sampleRun(fmt.Sprintf("r%d", i), "fn", "evt", status)
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	all, err := store.ListRuns(RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(all))
	}
	for i, run := range all {
		if want := fmt.Sprintf("r%d", i); run.ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, run.ID)
		}
	}

	failed, err := store.ListRuns(RunFilter{Status: api.StatusFailed})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed runs, got %d", len(failed))
	}
}

func TestInMemoryStoreHistory(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for i := 0; i < 3; i++ {
		ev := api.RunEvent{
			RunID: "r1",
			At:    time.Now(),
			Type:  api.RunEventStepCompleted,
			Step:  fmt.Sprintf("step-%d", i),
		}
		if err := store.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	events, err := store.ListEvents(ctx, "r1")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if want := fmt.Sprintf("step-%d", i); ev.Step != want {
			t.Fatalf("event %d: expected step %s, got %s", i, want, ev.Step)
		}
	}

	other, err := store.ListEvents(ctx, "r2")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no events for other run, got %d", len(other))
	}
}
