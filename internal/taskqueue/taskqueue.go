package taskqueue

import (
	"context"
	"time"

	"github.com/petrijr/disparo/pkg/api"
)

// defaultPollInterval is how often the durable queues check for newly
// eligible tasks while empty.
const defaultPollInterval = 20 * time.Millisecond

// Task is one dispatched event waiting to be picked up by a worker.
type Task struct {
	ID string

	// Event is the dispatched event; workers resolve the functions
	// bound to Event.Name and run each of them.
	Event api.Event

	EnqueuedAt time.Time

	// NotBefore is the earliest time this task should be eligible for
	// processing. Zero value means "immediately" (i.e., at enqueue time).
	NotBefore time.Time

	// Attempts counts how many times a worker has tried to process this
	// task. It is incremented when a failed task is re-enqueued.
	Attempts int
}

// Queue is a simple async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for
	// cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next eligible task, blocking
	// until one is available or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
