package persistence

import (
	"context"
	"errors"

	"github.com/petrijr/disparo/pkg/api"
)

var (
	// ErrRunNotFound is returned when a function run is not found.
	ErrRunNotFound = errors.New("run not found")
)

// RunFilter is used to select runs from the store.
// Empty string / zero status mean "no filter" for that field.
type RunFilter struct {
	Function string
	Event    string
	Status   api.Status
}

// RunStore handles storage of function runs. Implementations must
// preserve insertion order in ListRuns.
type RunStore interface {
	SaveRun(run *api.FunctionRun) error
	UpdateRun(run *api.FunctionRun) error
	GetRun(id string) (*api.FunctionRun, error)
	ListRuns(filter RunFilter) ([]*api.FunctionRun, error)
}

// HistoryStore is an append-only history store for run events.
type HistoryStore interface {
	AppendEvent(ctx context.Context, ev api.RunEvent) error
	ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error)
}

// NoopHistoryStore discards all events.
type NoopHistoryStore struct{}

func (NoopHistoryStore) AppendEvent(ctx context.Context, ev api.RunEvent) error { return nil }
func (NoopHistoryStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	return nil, nil
}

// Persistence bundles the store interfaces so the engine can depend on
// a single abstraction.
type Persistence struct {
	Runs    RunStore
	History HistoryStore
}
