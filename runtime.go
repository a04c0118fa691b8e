package disparo

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/disparo/internal/taskqueue"
	"github.com/petrijr/disparo/pkg/dispatch"
)

// Runtime bundles an Engine, a Dispatcher, and a Worker into a single
// process-local event runtime.
//
// Typical usage:
//
//	rt := disparo.NewRuntime()
//	disparo.NewFunction("hello", "test/hello.world").
//		Step("greet", greet).
//		MustRegister(rt.Engine)
//
//	_ = rt.StartWorkers(ctx, 2)
//	_ = rt.Send(ctx, disparo.Event{Name: "test/hello.world"})
//	...
//	rt.Stop()
type Runtime struct {
	// Engine executes functions and persists their runs.
	Engine Engine

	// Queue carries dispatched event tasks to the Worker.
	Queue taskqueue.Queue

	// Dispatcher publishes events onto Queue.
	Dispatcher *dispatch.Dispatcher

	// Worker processes tasks from Queue using Engine.
	Worker *dispatch.Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRuntime constructs a Runtime backed by an in-memory engine and an
// in-memory queue, with default worker config.
//
// This is intended for local development, tests, and simple
// single-process deployments.
func NewRuntime() *Runtime {
	eng := NewInMemoryEngine()
	q := taskqueue.NewInMemoryQueue(1024)

	return &Runtime{
		Engine:     eng,
		Queue:      q,
		Dispatcher: dispatch.NewDispatcher(q),
		Worker:     dispatch.New(eng, q),
	}
}

// NewSQLiteRuntime constructs a Runtime whose runs, run history, and task
// queue all live in the given SQLite database, so a restart loses neither
// state nor pending events. The worker uses cfg for task-level retry.
func NewSQLiteRuntime(db *sql.DB, cfg dispatch.Config) (*Runtime, error) {
	eng, err := NewSQLiteEngine(db)
	if err != nil {
		return nil, err
	}
	q, err := taskqueue.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Engine:     eng,
		Queue:      q,
		Dispatcher: dispatch.NewDispatcher(q),
		Worker:     dispatch.NewWithConfig(eng, q, cfg),
	}, nil
}

// NewRedisRuntime constructs a Runtime whose runs and task queue live in
// Redis under the given key prefix. The worker uses cfg for task-level
// retry.
func NewRedisRuntime(client *redis.Client, prefix string, cfg dispatch.Config) *Runtime {
	eng := NewRedisEngine(client)
	q := taskqueue.NewRedisQueue(client, prefix)

	return &Runtime{
		Engine:     eng,
		Queue:      q,
		Dispatcher: dispatch.NewDispatcher(q),
		Worker:     dispatch.NewWithConfig(eng, q, cfg),
	}
}

// StartWorkers starts 'concurrency' worker goroutines that continuously
// process tasks until the context is cancelled via Stop.
//
// If StartWorkers is called more than once without Stop, it returns an
// error.
func (r *Runtime) StartWorkers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("disparo: runtime already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()

			// A single bad task must not kill the worker loop.
			r.Worker.Run(ctx, func(err error) {
				slog.Error("disparo: runtime worker error", "error", err)
			})
		}()
	}

	return nil
}

// Stop cancels all worker goroutines started by StartWorkers and waits
// for them to exit.
func (r *Runtime) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Send publishes an event for asynchronous processing by the workers.
func (r *Runtime) Send(ctx context.Context, evt Event) error {
	return r.Dispatcher.Send(ctx, evt)
}

// SendAt publishes an event that becomes eligible for processing no
// earlier than 'at'.
func (r *Runtime) SendAt(ctx context.Context, evt Event, at time.Time) error {
	return r.Dispatcher.SendAt(ctx, evt, at)
}
