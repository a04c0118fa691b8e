// Package disparo provides a lightweight, embeddable event-dispatch
// runtime for Go.
//
// Disparo is designed for backend services that need "publish now,
// execute later" background work without introducing heavy
// infrastructure: trigger an event from a request handler, return
// immediately, and let a worker run the functions bound to that event.
// It runs fully in Go, supports multiple persistence backends, and
// integrates cleanly into existing codebases.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Event
//  2. Function
//  3. Engine
//  4. Dispatcher
//  5. Worker
//
// An Event is a named message with an arbitrary payload. A Function is
// a sequence of named steps registered against one event name; several
// functions may share an event. The Engine stores function definitions,
// executes steps with per-step retry policies, and persists one
// FunctionRun per execution, including a StepResult for every step.
//
// The Dispatcher publishes events onto a task queue and returns as soon
// as the enqueue succeeds. Workers consume the queue and drive the
// engine. With a durable backend (SQLite, Postgres, Redis), dispatched
// events and run records survive restarts.
//
// # Quick start
//
//	rt := disparo.NewRuntime()
//
//	greet := disparo.NewFunction("hello-world", "test/hello.world").
//	    Step("greet", func(ctx context.Context, input any) (any, error) {
//	        return "hello!", nil
//	    })
//	greet.MustRegister(rt.Engine)
//
//	rt.StartWorkers(ctx, 2)
//	defer rt.Stop()
//
//	_ = rt.Send(ctx, disparo.Event{Name: "test/hello.world"})
//
// # Backends
//
// Engines can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability; a matching durable task queue is
//     available via NewSQLiteRuntime)
//   - Postgres
//   - Redis (runs and task queue)
//
// # Step retry
//
// Each step may carry a RetryPolicy built with the Retry helper:
//
//	disparo.NewFunction("execute-ai", "execute/ai").
//	    StepWithRetry("openai", callOpenAI,
//	        disparo.Retry(3).WithExponentialBackoff(time.Second, 2.0, 30*time.Second).Policy())
//
// Retries happen inside the step: the run records a single StepResult
// with the attempt count. Task-level retry (re-running a whole event
// task) is configured on the worker.
package disparo
