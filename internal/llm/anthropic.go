package llm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropic(apiKey, model string) *anthropicProvider {
	return &anthropicProvider{
		// Retries are the caller's decision.
		client: anthropic.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0)),
		model:  model,
	}
}

func (p *anthropicProvider) Complete(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if opts != nil {
		if opts.MaxTokens > 0 {
			params.MaxTokens = int64(opts.MaxTokens)
		}
		if opts.Temperature != nil {
			params.Temperature = anthropic.Float(float64(*opts.Temperature))
		}
	}
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(ProviderAnthropic, err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", emptyResponse(ProviderAnthropic, "no text content returned")
}
