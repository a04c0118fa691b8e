package api

import "time"

// Status represents the lifecycle state of a function run.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// StepResult records the outcome of one step inside a run. One result
// is appended per executed step, in step order; retried attempts share
// a single result.
type StepResult struct {
	// Name is the step name from the definition.
	Name string

	// Attempts is how many times the step function was invoked,
	// including the final (successful or exhausting) attempt.
	Attempts int

	// Output is the value the step returned on success; nil on failure.
	Output any

	// Error is the final attempt's error message, empty on success.
	Error string

	StartedAt time.Time
	Duration  time.Duration
}

// FunctionRun records one execution of a function triggered by an
// event. It is the persisted "workflow record" the read API serves.
type FunctionRun struct {
	ID       string
	Function string

	// Event is the triggering event, kept for deterministic replay on
	// Resume.
	Event Event

	Status Status
	Output any
	Err    error

	// Steps holds one StepResult per executed step, in order.
	Steps []StepResult

	// CurrentStep tracks progress through the function's steps:
	//   - before any steps run: 0
	//   - while running step i: i
	//   - after successful completion: len(steps)
	//   - on failure: index of the step that failed.
	CurrentStep int

	CreatedAt time.Time
}

// RunListOptions controls how runs are listed. Zero values mean
// "no filter" for that field.
type RunListOptions struct {
	// Function, if non-empty, limits results to runs of the given function.
	Function string

	// Event, if non-empty, limits results to runs triggered by the given
	// event name.
	Event string

	// Status, if non-empty, limits results to runs with the given status.
	Status Status
}
