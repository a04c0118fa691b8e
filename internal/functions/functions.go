// Package functions defines the built-in event-triggered functions.
package functions

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/petrijr/disparo/pkg/api"
	"github.com/petrijr/disparo/pkg/genai"
)

// Event names the built-in functions are bound to.
const (
	EventHelloWorld = "test/hello.world"
	EventExecuteAI  = "execute/ai"
)

// Function names.
const (
	FunctionHelloWorld = "hello-world"
	FunctionExecuteAI  = "execute-ai"
)

// HelloWorld returns the smoke-test function: a single step that greets
// whoever the event names, or the world when the event carries no name.
func HelloWorld() api.FunctionDefinition {
	return api.FunctionDefinition{
		Name:  FunctionHelloWorld,
		Event: EventHelloWorld,
		Steps: []api.StepDefinition{
			{
				Name: "greet",
				Fn: func(ctx context.Context, input any) (any, error) {
					name := "world"
					if data, ok := input.(map[string]any); ok {
						if n, ok := data["name"].(string); ok && n != "" {
							name = n
						}
					}
					return fmt.Sprintf("Hello, %s!", name), nil
				},
			},
		},
	}
}

// ProviderModels holds one model per provider for the execute-ai
// function.
type ProviderModels struct {
	Gemini    llms.Model
	OpenAI    llms.Model
	Anthropic llms.Model
}

// aiRetry is the per-step retry policy for provider calls: up to three
// attempts with exponential backoff.
func aiRetry() *api.RetryPolicy {
	return &api.RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ExecuteAI returns the function triggered by the execute/ai event. It
// sends the event's prompt to Gemini, OpenAI, and Anthropic in turn as
// three separate steps, so each provider call is retried and recorded
// independently. The run output is a genai.PromptState whose Results map
// holds one completion per step name.
func ExecuteAI(models ProviderModels) api.FunctionDefinition {
	return api.FunctionDefinition{
		Name:  FunctionExecuteAI,
		Event: EventExecuteAI,
		Steps: []api.StepDefinition{
			{Name: "gemini", Fn: genai.GenerateStep(models.Gemini, "gemini"), Retry: aiRetry()},
			{Name: "openai", Fn: genai.GenerateStep(models.OpenAI, "openai"), Retry: aiRetry()},
			{Name: "anthropic", Fn: genai.GenerateStep(models.Anthropic, "anthropic"), Retry: aiRetry()},
		},
	}
}
