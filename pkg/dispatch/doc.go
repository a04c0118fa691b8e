// Package dispatch provides the asynchronous half of the disparo
// runtime: a Dispatcher that publishes named events onto a task queue,
// and a Worker that consumes those tasks and executes every function
// bound to each event.
//
// Dispatching is fire-and-forget: Dispatcher.Send returns once the
// enqueue succeeds, not once the triggered functions complete. Workers
// run in background goroutines and can be scaled horizontally when the
// queue is durable.
//
// Task-level retry is coarse: when any function triggered by a task
// fails, the worker re-enqueues the whole task with a delay, up to
// Config.MaxAttempts. Fine-grained retry belongs on individual steps
// via their RetryPolicy.
package dispatch
