// Package api defines the core types of the disparo runtime: events,
// function definitions, function runs, step results, retry policies and
// the Engine interface.
//
// Most applications should not import this package directly; the root
// disparo package re-exports everything needed for everyday use. The
// types live here so that internal packages (engine, persistence,
// taskqueue) and public packages (dispatch, genai) can share them
// without import cycles.
//
// # Events and functions
//
// An Event is a named message with an arbitrary string-keyed payload.
// Event names are fixed string literals known at publish time, for
// example "test/hello.world". The runtime performs no schema validation
// on payloads.
//
// A FunctionDefinition binds a function name to a trigger event and an
// ordered list of named steps. When an event is dispatched, every
// function bound to its name is executed.
//
// # Runs and steps
//
// A FunctionRun records one execution of a function: the triggering
// event, the lifecycle status, the per-step results and the final
// output. Each step is executed with its own retry policy and produces
// a StepResult capturing attempts, output, error and duration. Step
// results are the unit of bookkeeping the runtime exposes for
// observability.
package api
