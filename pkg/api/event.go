package api

import "encoding/gob"

func init() {
	// Payload values travel through gob when tasks and runs are
	// persisted, so the common JSON-shaped types must be registered.
	gob.Register(Event{})
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// Event is a named message dispatched into the runtime. Name is a fixed
// string literal known at publish time (e.g. "execute/ai"); Data is an
// arbitrary payload handed unmodified to every function bound to the
// event.
type Event struct {
	Name string
	Data map[string]any
}

// String returns a value from the event payload as a string, or the
// empty string if the key is missing or holds a non-string value.
func (e Event) String(key string) string {
	if s, ok := e.Data[key].(string); ok {
		return s
	}
	return ""
}
