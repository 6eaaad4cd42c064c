package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type ollamaProvider struct {
	host   string
	model  string
	client *http.Client
}

func newOllama(host, model string) *ollamaProvider {
	return &ollamaProvider{
		host:  host,
		model: model,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (p *ollamaProvider) Complete(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error) {
	r := ollamaRequest{
		Model:  p.model,
		System: system,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	}
	if opts != nil {
		r.Options = map[string]any{}
		if opts.Temperature != nil {
			r.Options["temperature"] = *opts.Temperature
		}
		if opts.MaxTokens > 0 {
			r.Options["num_predict"] = opts.MaxTokens
		}
	}
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshaling ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", classify(ProviderOllama, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &Error{
			Provider:   ProviderOllama,
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("ollama returned: %s", respBody),
		}
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &Error{Provider: ProviderOllama, Kind: KindTransport, Err: fmt.Errorf("decoding ollama response: %w", err)}
	}
	if result.Response == "" {
		return "", emptyResponse(ProviderOllama, "empty response")
	}
	return result.Response, nil
}
