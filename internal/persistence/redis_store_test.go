package persistence

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/petrijr/disparo/pkg/api"
)

func newTestRedisStore(t *testing.T) *RedisRunStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRunStore(client, "disparo:test:")
}

func TestRedisRunStoreRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)

	run := &api.FunctionRun{
		ID:       "r1",
		Function: "fn",
		Event: api.Event{
			Name: "evt/name",
			Data: map[string]any{"email": "alice@example.com"},
		},
		Status: api.StatusCompleted,
		Output: "done",
		Steps: []api.StepResult{
			{Name: "only", Attempts: 1, Output: "done"},
		},
		CurrentStep: 1,
		CreatedAt:   time.Now(),
	}
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun("r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != api.StatusCompleted || got.Output != "done" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.Event.Data["email"] != "alice@example.com" {
		t.Fatalf("event data did not round-trip: %+v", got.Event.Data)
	}
	if len(got.Steps) != 1 || got.Steps[0].Name != "only" {
		t.Fatalf("steps did not round-trip: %+v", got.Steps)
	}
}

func TestRedisRunStoreGetMissing(t *testing.T) {
	store := newTestRedisStore(t)
	if _, err := store.GetRun("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRedisRunStoreUpdateMissing(t *testing.T) {
	store := newTestRedisStore(t)
	run := &api.FunctionRun{ID: "ghost", Function: "fn", Status: api.StatusRunning}
	if err := store.UpdateRun(run); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRedisRunStoreListOrderAndFilter(t *testing.T) {
	store := newTestRedisStore(t)

	for i := 0; i < 4; i++ {
		status := api.StatusCompleted
		if i == 3 {
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
	if len(failed) != 1 || failed[0].ID != "r3" {
		t.Fatalf("expected only r3 to be failed, got %+v", failed)
	}
}

func TestRedisRunStoreSaveTwiceKeepsSingleOrderEntry(t *testing.T) {
	store := newTestRedisStore(t)

	run := sampleRun("r1", "fn", "evt", api.StatusPending)
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	run.Status = api.StatusCompleted
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}

	all, err := store.ListRuns(RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 run, got %d", len(all))
	}
	if all[0].Status != api.StatusCompleted {
		t.Fatalf("expected updated status, got %q", all[0].Status)
	}
}
