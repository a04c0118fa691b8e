package disparo

import (
	"fmt"

	"github.com/petrijr/disparo/pkg/api"
)

// FunctionBuilder provides a fluent API for defining functions:
//
//	fn := disparo.NewFunction("execute-ai", "execute/ai").
//	    Step("gemini", callGemini).
//	    Step("openai", callOpenAI).
//	    Step("anthropic", callAnthropic)
//
//	if err := fn.Register(engine); err != nil {
//	    log.Fatal(err)
//	}
type FunctionBuilder struct {
	def api.FunctionDefinition
}

// NewFunction creates a new function builder with the given name, bound
// to the given event.
func NewFunction(name, event string) *FunctionBuilder {
	return &FunctionBuilder{
		def: api.FunctionDefinition{
			Name:  name,
			Event: event,
			Steps: make([]api.StepDefinition, 0),
		},
	}
}

// Name returns the function name.
func (b *FunctionBuilder) Name() string {
	return b.def.Name
}

// Event returns the event name the function is bound to.
func (b *FunctionBuilder) Event() string {
	return b.def.Event
}

// Definition returns the underlying FunctionDefinition.
// Typically used when interacting with lower-level APIs.
func (b *FunctionBuilder) Definition() FunctionDefinition {
	return b.def
}

// Step appends a basic step to the function.
func (b *FunctionBuilder) Step(name string, fn StepFunc) *FunctionBuilder {
	if name == "" {
		panic("disparo: step name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("disparo: step %q has nil function", name))
	}

	b.def.Steps = append(b.def.Steps, api.StepDefinition{
		Name:  name,
		Fn:    fn,
		Retry: nil,
	})
	return b
}

// StepWithRetry appends a step that uses the given retry policy.
func (b *FunctionBuilder) StepWithRetry(name string, fn StepFunc, retry RetryPolicy) *FunctionBuilder {
	if name == "" {
		panic("disparo: step name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("disparo: step %q has nil function", name))
	}

	// Make a copy so callers can mutate their RetryPolicy after the
	// call without affecting the stored definition.
	r := retry

	b.def.Steps = append(b.def.Steps, api.StepDefinition{
		Name:  name,
		Fn:    fn,
		Retry: &r,
	})
	return b
}

// Register registers the built function with the given engine.
func (b *FunctionBuilder) Register(eng Engine) error {
	return eng.RegisterFunction(b.def)
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *FunctionBuilder) MustRegister(eng Engine) {
	if err := b.Register(eng); err != nil {
		panic(err)
	}
}
