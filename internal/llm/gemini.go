package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type geminiProvider struct {
	client *genai.Client
	model  string
}

func newGemini(ctx context.Context, apiKey, model string) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &geminiProvider{client: client, model: model}, nil
}

func (p *geminiProvider) Complete(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if opts != nil {
		cfg.Temperature = opts.Temperature
		if opts.MaxTokens > 0 {
			cfg.MaxOutputTokens = int32(opts.MaxTokens)
		}
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", classify(ProviderGemini, err)
	}
	text := resp.Text()
	if text == "" {
		return "", emptyResponse(ProviderGemini, "no candidates returned")
	}
	return text, nil
}
