package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

type openaiProvider struct {
	client *openai.Client
	model  string
}

func newOpenAI(apiKey, model, baseURL string) *openaiProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openaiProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *openaiProvider) Complete(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	}
	if opts != nil {
		if opts.Temperature != nil {
			req.Temperature = *opts.Temperature
		}
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(ProviderOpenAI, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", emptyResponse(ProviderOpenAI, "no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
