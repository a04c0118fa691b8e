package engine

import (
	"fmt"
	"sync"

	"github.com/petrijr/disparo/pkg/api"
)

// functionRegistry keeps registered function definitions in memory,
// indexed by function name and by trigger event. Definitions carry live
// StepFunc closures, so they never touch the persistence layer.
type functionRegistry struct {
	mu      sync.RWMutex
	byName  map[string]api.FunctionDefinition
	byEvent map[string][]string
}

func newFunctionRegistry() *functionRegistry {
	return &functionRegistry{
		byName:  make(map[string]api.FunctionDefinition),
		byEvent: make(map[string][]string),
	}
}

func (r *functionRegistry) Register(def api.FunctionDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("function already registered: %s", def.Name)
	}

	r.byName[def.Name] = def
	r.byEvent[def.Event] = append(r.byEvent[def.Event], def.Name)
	return nil
}

func (r *functionRegistry) Get(name string) (api.FunctionDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.byName[name]
	if !ok {
		return api.FunctionDefinition{}, fmt.Errorf("unknown function: %s", name)
	}
	return def, nil
}

// ForEvent returns the definitions bound to an event name, in
// registration order.
func (r *functionRegistry) ForEvent(event string) []api.FunctionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.byEvent[event]
	defs := make([]api.FunctionDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.byName[name])
	}
	return defs
}
