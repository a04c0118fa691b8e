package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/disparo/internal/taskqueue"
	"github.com/petrijr/disparo/pkg/api"
)

// ErrEmptyEventName is returned by Send when the event has no name.
var ErrEmptyEventName = errors.New("event name is required")

// Dispatcher publishes events onto a task queue for asynchronous
// execution by workers. It is safe for concurrent use.
type Dispatcher struct {
	queue taskqueue.Queue
}

// NewDispatcher creates a Dispatcher publishing to the given queue.
func NewDispatcher(queue taskqueue.Queue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// Send publishes an event. It returns once the task is enqueued; it
// does NOT wait for the triggered functions to run.
func (d *Dispatcher) Send(ctx context.Context, evt api.Event) error {
	return d.send(ctx, evt, time.Time{})
}

// SendAt publishes an event that becomes eligible for processing no
// earlier than 'at'.
func (d *Dispatcher) SendAt(ctx context.Context, evt api.Event, at time.Time) error {
	return d.send(ctx, evt, at)
}

func (d *Dispatcher) send(ctx context.Context, evt api.Event, at time.Time) error {
	if evt.Name == "" {
		return ErrEmptyEventName
	}

	return d.queue.Enqueue(ctx, taskqueue.Task{
		ID:         uuid.NewString(),
		Event:      evt,
		EnqueuedAt: time.Now(),
		NotBefore:  at,
	})
}
