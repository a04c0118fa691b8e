package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// fakeModel returns canned completions and records the messages it was
// called with.
type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	calls    int
}

var _ llms.Model = (*fakeModel)(nil)

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestGenerateStepStoresResult(t *testing.T) {
	model := &fakeModel{reply: "a fine answer"}
	step := GenerateStep(model, "gemini")

	out, err := step(context.Background(), map[string]any{"prompt": "what is up?"})
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}

	st, ok := out.(PromptState)
	if !ok {
		t.Fatalf("expected PromptState, got %T", out)
	}
	if st.Results["gemini"] != "a fine answer" {
		t.Fatalf("expected result under step name, got %+v", st.Results)
	}
	if st.Prompt != "what is up?" {
		t.Fatalf("expected prompt to be preserved, got %q", st.Prompt)
	}
}

func TestGenerateStepChainsAcrossProviders(t *testing.T) {
	first := GenerateStep(&fakeModel{reply: "from gemini"}, "gemini")
	second := GenerateStep(&fakeModel{reply: "from openai"}, "openai")

	out, err := first(context.Background(), map[string]any{"prompt": "q"})
	if err != nil {
		t.Fatalf("first step failed: %v", err)
	}
	out, err = second(context.Background(), out)
	if err != nil {
		t.Fatalf("second step failed: %v", err)
	}

	st := out.(PromptState)
	if st.Results["gemini"] != "from gemini" || st.Results["openai"] != "from openai" {
		t.Fatalf("expected both results, got %+v", st.Results)
	}
}

func TestGenerateStepSendsSystemPrompt(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	step := GenerateStep(model, "openai")

	_, err := step(context.Background(), map[string]any{
		"prompt": "question",
		"system": "you are terse",
	})
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}

	if len(model.messages) != 2 {
		t.Fatalf("expected system + human messages, got %d", len(model.messages))
	}
	if model.messages[0].Role != schema.ChatMessageTypeSystem {
		t.Fatalf("expected first message to be system, got %s", model.messages[0].Role)
	}
	if model.messages[1].Role != schema.ChatMessageTypeHuman {
		t.Fatalf("expected second message to be human, got %s", model.messages[1].Role)
	}
}

func TestGenerateStepRequiresPrompt(t *testing.T) {
	step := GenerateStep(&fakeModel{reply: "never"}, "gemini")

	_, err := step(context.Background(), map[string]any{})
	if err == nil || !strings.Contains(err.Error(), "prompt is required") {
		t.Fatalf("expected prompt-required error, got %v", err)
	}
}

func TestGenerateStepPropagatesProviderError(t *testing.T) {
	boom := errors.New("rate limited")
	step := GenerateStep(&fakeModel{err: boom}, "anthropic")

	_, err := step(context.Background(), map[string]any{"prompt": "q"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if !strings.Contains(err.Error(), "anthropic") {
		t.Fatalf("expected error to name the step, got %v", err)
	}
}

func TestStateFromString(t *testing.T) {
	st, err := stateFrom("plain question")
	if err != nil {
		t.Fatalf("stateFrom failed: %v", err)
	}
	if st.Prompt != "plain question" {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestStateFromUnsupportedType(t *testing.T) {
	if _, err := stateFrom(42); err == nil {
		t.Fatal("expected error for unsupported input type")
	}
}

func TestNewModelUnsupportedProvider(t *testing.T) {
	_, err := NewModel(context.Background(), ProviderConfig{Provider: "watson"})
	if err == nil || !strings.Contains(err.Error(), "unsupported provider") {
		t.Fatalf("expected unsupported-provider error, got %v", err)
	}
}
