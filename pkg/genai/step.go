package genai

import (
	"context"
	"encoding/gob"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/petrijr/disparo/pkg/api"
)

// PromptState travels through run outputs, which are gob-encoded by the
// persistent stores.
func init() {
	gob.Register(PromptState{})
}

// PromptState is the value threaded between generate steps in a run.
// Each step appends its completion to Results under the step's name and
// passes the state on unchanged otherwise.
type PromptState struct {
	// System is an optional system prompt shared by every step.
	System string

	// Prompt is the user prompt sent to each provider.
	Prompt string

	// Results maps step name to the provider's completion text.
	Results map[string]string
}

// stateFrom coerces a step input into a PromptState. Event data arrives
// as map[string]any on the first step; later steps receive the
// PromptState produced by their predecessor.
func stateFrom(input any) (PromptState, error) {
	switch v := input.(type) {
	case PromptState:
		return v, nil
	case *PromptState:
		if v == nil {
			return PromptState{}, fmt.Errorf("nil prompt state")
		}
		return *v, nil
	case map[string]any:
		st := PromptState{}
		if s, ok := v["system"].(string); ok {
			st.System = s
		}
		if p, ok := v["prompt"].(string); ok {
			st.Prompt = p
		}
		return st, nil
	case string:
		return PromptState{Prompt: v}, nil
	case nil:
		return PromptState{}, nil
	default:
		return PromptState{}, fmt.Errorf("unexpected prompt input type %T", input)
	}
}

// GenerateStep returns a step that sends the current prompt to model and
// stores the completion in PromptState.Results under stepName.
//
// The step fails when the prompt is empty, when the provider call
// errors, or when the provider returns no choices; step-level retry then
// applies as configured on the step definition.
func GenerateStep(model llms.Model, stepName string) api.StepFunc {
	return func(ctx context.Context, input any) (any, error) {
		st, err := stateFrom(input)
		if err != nil {
			return nil, err
		}
		if st.Prompt == "" {
			return nil, fmt.Errorf("%s: prompt is required", stepName)
		}

		var messages []llms.MessageContent
		if st.System != "" {
			messages = append(messages, llms.MessageContent{
				Role:  schema.ChatMessageTypeSystem,
				Parts: []llms.ContentPart{llms.TextPart(st.System)},
			})
		}
		messages = append(messages, llms.MessageContent{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(st.Prompt)},
		})

		resp, err := model.GenerateContent(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stepName, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("%s: provider returned no choices", stepName)
		}

		if st.Results == nil {
			st.Results = make(map[string]string)
		} else {
			// Copy so retries of a later step never see a half-updated map.
			results := make(map[string]string, len(st.Results)+1)
			for k, val := range st.Results {
				results[k] = val
			}
			st.Results = results
		}
		st.Results[stepName] = resp.Choices[0].Content

		return st, nil
	}
}
