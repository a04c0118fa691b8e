// Package genai builds AI-provider steps on top of langchaingo.
//
// A GenerateStep sends the run's prompt to one provider model and records
// the completion under the step's name, so a chain of generate steps over
// different providers accumulates one answer per provider in the run
// output.
package genai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "googleai"
)

// ProviderConfig describes how to reach one AI provider.
type ProviderConfig struct {
	// Provider is one of the Provider* constants.
	Provider string

	// Model is the provider-specific model name, e.g. "gpt-4o-mini".
	Model string

	// APIKey authenticates against the provider. When empty, the
	// provider SDK falls back to its own environment variable.
	APIKey string

	// BaseURL overrides the provider endpoint. Only OpenAI-compatible
	// providers support it.
	BaseURL string
}

// NewModel creates a langchaingo model for the given provider config.
func NewModel(ctx context.Context, cfg ProviderConfig) (llms.Model, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAI(cfg)
	case ProviderAnthropic:
		return newAnthropic(cfg)
	case ProviderGoogle:
		return newGoogle(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

func newOpenAI(cfg ProviderConfig) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

func newAnthropic(cfg ProviderConfig) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, anthropic.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(opts...)
}

func newGoogle(ctx context.Context, cfg ProviderConfig) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithDefaultModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		return nil, fmt.Errorf("googleai does not support a custom base URL")
	}
	return googleai.New(ctx, opts...)
}
