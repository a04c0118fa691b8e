package disparo

import (
	"context"
	"time"

	"github.com/petrijr/disparo/pkg/api"
)

// SleepStep returns a step that pauses the run for d before passing its
// input through unchanged. The sleep is cancellable via the context.
func SleepStep(d time.Duration) StepFunc {
	return api.SleepStep(d)
}

// TypedStep wraps a function with concrete input and output types into a
// StepFunc, converting the dynamic step input with a best-effort coercion.
// See api.TypedStep for the coercion rules.
func TypedStep[I, O any](fn func(context.Context, I) (O, error)) StepFunc {
	return api.TypedStep(fn)
}
