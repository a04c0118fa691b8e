package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/petrijr/disparo/pkg/api"
)

func newTestRedisQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(client, "disparo:test:"), mr
}

func TestRedisQueueEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestRedisQueue(t)

	task := Task{
		ID: "t1",
		Event: api.Event{
			Name: "evt/name",
			Data: map[string]any{"prompt": "hi"},
		},
		EnqueuedAt: time.Now(),
	}
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected Len 1, got %d", q.Len())
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got.ID != "t1" || got.Event.Name != "evt/name" {
		t.Fatalf("task did not round-trip: %+v", got)
	}
	if got.Event.Data["prompt"] != "hi" {
		t.Fatalf("event data did not round-trip: %+v", got.Event.Data)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, Len=%d", q.Len())
	}
}

func TestRedisQueueNotBefore(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestRedisQueue(t)

	later := Task{
		ID:        "later",
		Event:     api.Event{Name: "evt"},
		NotBefore: time.Now().Add(60 * time.Millisecond),
	}
	if err := q.Enqueue(ctx, later); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(ctx, Task{ID: "now", Event: api.Event{Name: "evt"}}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got.ID != "now" {
		t.Fatalf("expected immediate task first, got %s", got.ID)
	}

	// The delayed task becomes eligible once the clock passes NotBefore;
	// the poll loop picks it up.
	deadline, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	got, err = q.Dequeue(deadline)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got.ID != "later" {
		t.Fatalf("expected delayed task, got %s", got.ID)
	}
}

func TestRedisQueueDequeueRespectsContext(t *testing.T) {
	q, _ := newTestRedisQueue(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestTaskCodecRoundTrip(t *testing.T) {
	task := Task{
		ID:         "t1",
		Event:      api.Event{Name: "evt", Data: map[string]any{"k": "v"}},
		EnqueuedAt: time.Now().Truncate(time.Millisecond),
		Attempts:   2,
	}

	data, err := EncodeTask(task)
	if err != nil {
		t.Fatalf("EncodeTask failed: %v", err)
	}

	got, err := DecodeTask(data)
	if err != nil {
		t.Fatalf("DecodeTask failed: %v", err)
	}
	if got.ID != "t1" || got.Attempts != 2 || got.Event.Data["k"] != "v" {
		t.Fatalf("task did not round-trip: %+v", got)
	}
}
