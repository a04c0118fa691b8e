package persistence

import (
	"context"
	"sync"

	"github.com/petrijr/disparo/pkg/api"
)

// InMemoryStore is a goroutine-safe implementation of RunStore and
// HistoryStore backed by maps. Runs are listed in insertion order.
type InMemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]*api.FunctionRun
	order  []string
	events map[string][]api.RunEvent
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs:   make(map[string]*api.FunctionRun),
		events: make(map[string][]api.RunEvent),
	}
}

// Ensure InMemoryStore implements the interfaces.
var _ RunStore = (*InMemoryStore)(nil)

var _ HistoryStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveRun(run *api.FunctionRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		s.order = append(s.order, run.ID)
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *InMemoryStore) UpdateRun(run *api.FunctionRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return ErrRunNotFound
	}

	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetRun(id string) (*api.FunctionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}

	cp := *run
	return &cp, nil
}

func (s *InMemoryStore) ListRuns(filter RunFilter) ([]*api.FunctionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.FunctionRun

	for _, id := range s.order {
		run := s.runs[id]
		if filter.Function != "" && run.Function != filter.Function {
			continue
		}
		if filter.Event != "" && run.Event.Name != filter.Event {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		cp := *run
		result = append(result, &cp)
	}

	return result, nil
}

func (s *InMemoryStore) AppendEvent(ctx context.Context, ev api.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[ev.RunID] = append(s.events[ev.RunID], ev)
	return nil
}

func (s *InMemoryStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.events[runID]
	out := make([]api.RunEvent, len(evs))
	copy(out, evs)
	return out, nil
}
