package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petrijr/disparo/internal/taskqueue"
	"github.com/petrijr/disparo/pkg/api"
)

// Config controls worker behavior.
type Config struct {
	// MaxAttempts caps how many times a task is processed before being
	// dropped, including the first attempt. Zero or negative means 1
	// (no task-level retry).
	MaxAttempts int

	// RetryBackoff is the delay before a failed task becomes eligible
	// again. Defaults to one second when unset.
	RetryBackoff time.Duration
}

// Worker pulls event tasks from a Queue and executes every function the
// engine has bound to each event.
type Worker struct {
	engine api.Engine
	queue  taskqueue.Queue
	cfg    Config
}

// New creates a Worker with default config.
func New(engine api.Engine, queue taskqueue.Queue) *Worker {
	return NewWithConfig(engine, queue, Config{})
}

// NewWithConfig creates a Worker with the given config.
func NewWithConfig(engine api.Engine, queue taskqueue.Queue, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &Worker{
		engine: engine,
		queue:  queue,
		cfg:    cfg,
	}
}

// ProcessOne pulls a single task from the queue and processes it.
// Returns (processed, error):
//   - processed == false, err != nil: nothing was dequeued (typically
//     context cancellation).
//   - processed == true: a task was processed; err reports whether all
//     triggered functions succeeded.
//
// A failed task is re-enqueued with backoff until Config.MaxAttempts is
// exhausted; every retry re-runs all functions bound to the event, so
// runs from earlier attempts remain visible in the store.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	defs := w.engine.FunctionsForEvent(task.Event.Name)
	if len(defs) == 0 {
		return true, fmt.Errorf("no function registered for event: %s", task.Event.Name)
	}

	var errs []error
	for _, def := range defs {
		if _, runErr := w.engine.Run(ctx, def.Name, task.Event); runErr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", def.Name, runErr))
		}
	}

	if len(errs) == 0 {
		return true, nil
	}

	taskErr := errors.Join(errs...)

	// Cancellation is not a task failure; let the caller decide.
	if ctx.Err() != nil {
		return true, taskErr
	}

	task.Attempts++
	if task.Attempts < w.cfg.MaxAttempts {
		task.NotBefore = time.Now().Add(w.cfg.RetryBackoff)
		if enqErr := w.queue.Enqueue(ctx, *task); enqErr != nil {
			return true, errors.Join(taskErr, enqErr)
		}
	}

	return true, taskErr
}

// Run processes tasks until the context is cancelled. Errors from
// individual tasks are reported through the optional onError callback
// and never stop the loop.
func (w *Worker) Run(ctx context.Context, onError func(error)) {
	for {
		processed, err := w.ProcessOne(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if onError != nil {
				onError(err)
			}
			continue
		}
		if !processed && ctx.Err() != nil {
			return
		}
	}
}
