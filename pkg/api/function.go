package api

import (
	"context"
	"fmt"
	"time"
)

// StepFunc is a single step in a function. It receives the output of
// the previous step (or the event payload, for the first step) and
// returns the input for the next one.
type StepFunc func(ctx context.Context, input any) (any, error)

// StepDefinition describes a named step.
type StepDefinition struct {
	Name  string
	Fn    StepFunc
	Retry *RetryPolicy
}

// FunctionDefinition describes a background function: a sequence of
// steps executed whenever its trigger event is dispatched.
type FunctionDefinition struct {
	// Name uniquely identifies the function within an engine.
	Name string

	// Event is the event name this function is bound to.
	Event string

	Steps []StepDefinition
}

// RetryPolicy controls how a step is retried when it returns an error.
// MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// InitialBackoff is the delay before the first retry; each subsequent
// delay is multiplied by BackoffMultiplier (default 2.0) and capped at
// MaxBackoff when that is set. A zero InitialBackoff retries
// immediately.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// SleepStep returns a StepFunc that waits for the given duration before
// passing the input through unchanged.
//
// It is context-aware: if the context is cancelled during the sleep,
// it returns ctx.Err and the run will fail at this step.
func SleepStep(d time.Duration) StepFunc {
	return func(ctx context.Context, input any) (any, error) {
		if d <= 0 {
			return input, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
			return input, nil
		}
	}
}

// TypedStep wraps a strongly-typed function into a StepFunc. The input
// must be assignable to I or the step fails.
//
// Example:
//
//	api.TypedStep(func(ctx context.Context, s MyState) (MyState, error) { ... })
func TypedStep[I, O any](fn func(context.Context, I) (O, error)) StepFunc {
	return func(ctx context.Context, input any) (any, error) {
		in, err := coerce[I](input)
		if err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}
}

func coerce[I any](input any) (I, error) {
	if input == nil {
		var zero I
		return zero, nil
	}
	if in, ok := input.(I); ok {
		return in, nil
	}
	var zero I
	return zero, &StepInputError{Got: input}
}

// StepInputError reports a step input whose dynamic type did not match
// what the step expected.
type StepInputError struct {
	Got any
}

func (e *StepInputError) Error() string {
	return fmt.Sprintf("unexpected step input type %T", e.Got)
}
