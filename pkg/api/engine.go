package api

import (
	"context"
	"errors"
)

// ErrRunNotFound is returned by GetRun and Resume when no run exists
// with the given ID.
var ErrRunNotFound = errors.New("run not found")

// Engine executes functions and stores their runs.
type Engine interface {
	// RegisterFunction registers a definition by name. Registering two
	// functions with the same name is an error; registering several
	// functions on the same event is allowed.
	RegisterFunction(def FunctionDefinition) error

	// FunctionsForEvent returns every registered function bound to the
	// given event name, in registration order.
	FunctionsForEvent(event string) []FunctionDefinition

	// Run executes the named function to completion with the given
	// triggering event. If evt.Name is non-empty it must match the
	// function's bound event.
	Run(ctx context.Context, function string, evt Event) (*FunctionRun, error)

	// GetRun looks up a run by ID. Returns an error wrapping
	// ErrRunNotFound if no such run exists.
	GetRun(ctx context.Context, id string) (*FunctionRun, error)

	// ListRuns returns runs matching the given options, in storage
	// (insertion) order. Zero-valued options return all runs.
	ListRuns(ctx context.Context, opts RunListOptions) ([]*FunctionRun, error)

	// Resume replays a previously failed run from the beginning using
	// its stored event. Only FAILED runs can be resumed; the run keeps
	// its ID and its Status/Err/Output/Steps are updated.
	Resume(ctx context.Context, id string) (*FunctionRun, error)

	// RecoverStuckRuns scans for runs still marked RUNNING (for example
	// after a process crash) and marks them FAILED. It returns the
	// number of runs it updated, and is intended to be called on
	// startup before workers accept new work.
	RecoverStuckRuns(ctx context.Context) (int, error)
}

// HistoryReader is implemented by engines that keep an append-only
// event history per run.
type HistoryReader interface {
	// ListRunEvents returns all history events for a run in
	// chronological order.
	ListRunEvents(ctx context.Context, runID string) ([]RunEvent, error)
}
