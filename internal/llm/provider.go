package llm

import (
	"context"
	"fmt"
)

// ProviderName identifies a supported LLM provider.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGemini    ProviderName = "gemini"
	ProviderOllama    ProviderName = "ollama"
)

// CompleteOptions controls per-request LLM parameters.
// A nil value uses provider-specific defaults.
type CompleteOptions struct {
	Temperature *float32
	MaxTokens   int
}

// Temp is a convenience for building CompleteOptions literals.
func Temp(t float32) *float32 { return &t }

// ProviderConfig holds the configuration needed to construct a Provider.
type ProviderConfig struct {
	Name       ProviderName
	APIKey     string
	Model      string
	OllamaHost string
	// BaseURL overrides the OpenAI endpoint, for compatible gateways.
	BaseURL string
}

// Provider abstracts an LLM completion backend.
//
// Implementations return *Error for every failure so callers can tell an
// auth problem from a rate limit or an outage.
type Provider interface {
	Complete(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error)
}

// NewProvider creates a Provider for the given configuration.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case ProviderOpenAI:
		return newOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case ProviderAnthropic:
		return newAnthropic(cfg.APIKey, cfg.Model), nil
	case ProviderGemini:
		return newGemini(ctx, cfg.APIKey, cfg.Model)
	case ProviderOllama:
		return newOllama(cfg.OllamaHost, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Name)
	}
}
