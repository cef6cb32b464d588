// Package providers - OpenRouter LLM provider
package providers

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"net/http"

	"github.com/hazyhaar/goclode/internal/coreerr"
)

// OpenRouterProvider implements the Provider interface for OpenRouter API
type OpenRouterProvider struct {
	endpoint *Endpoint
	client   *http.Client
	apiKey   string
}

// NewOpenRouterProvider creates a new OpenRouter provider
func NewOpenRouterProvider(endpoint *Endpoint) *OpenRouterProvider {
	if endpoint == nil {
		endpoint = &Endpoint{
			ID:           "openrouter",
			Name:         "OpenRouter",
			BaseURL:      "https://openrouter.ai/api/v1",
			APIKeyEnv:    "OPENROUTER_API_KEY",
			DefaultModel: "meta-llama/llama-3.1-70b-instruct",
		}
	}

	return &OpenRouterProvider{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		apiKey: os.Getenv(endpoint.APIKeyEnv),
	}
}

// ID returns the provider identifier
func (p *OpenRouterProvider) ID() string {
	return p.endpoint.ID
}

// Name returns the human-readable name
func (p *OpenRouterProvider) Name() string {
	return p.endpoint.Name
}

// Models returns available models
func (p *OpenRouterProvider) Models() []string {
	return []string{
		"meta-llama/llama-3.1-70b-instruct",
		"meta-llama/llama-3.1-8b-instruct",
		"anthropic/claude-3.5-sonnet",
		"openai/gpt-4o",
		"google/gemini-pro-1.5",
	}
}

// IsAvailable checks if the provider is configured
func (p *OpenRouterProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// openrouterRequest is the OpenRouter API request format (OpenAI-compatible)
type openrouterRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

// Generate sends a prompt and returns the full response
func (p *OpenRouterProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if !p.IsAvailable() {
		return nil, coreerr.Invalid("OpenRouter API key not configured", "set "+p.endpoint.APIKeyEnv)
	}

	model := req.Model
	if model == "" {
		model = p.endpoint.DefaultModel
	}

	temp := req.Temperature
	if temp == 0 {
		temp = 0.7
	}

	orreq := &openrouterRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: temp,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}

	start := time.Now()
	body, err := json.Marshal(orreq)
	if err != nil {
		return nil, coreerr.JSON(err)
	}

	resp, err := sendWithRetry(ctx, p.client, p.endpoint.ID, p.endpoint.BaseURL+"/chat/completions", body, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.apiKey,
		"HTTP-Referer":  "https://github.com/hazyhaar/goclode",
		"X-Title":       "GoClode",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var orres cerebrasResponse // Same format as OpenAI
	if err := json.NewDecoder(resp.Body).Decode(&orres); err != nil {
		return nil, coreerr.JSON(err)
	}

	content := ""
	if len(orres.Choices) > 0 {
		content = orres.Choices[0].Message.Content
	}

	return &Response{
		ID:        orres.ID,
		Model:     orres.Model,
		Content:   content,
		TokensIn:  orres.Usage.PromptTokens,
		TokensOut: orres.Usage.CompletionTokens,
		Latency:   time.Since(start).Milliseconds(),
		Raw:       orres,
	}, nil
}

// Stream sends a prompt and streams the response
func (p *OpenRouterProvider) Stream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	if !p.IsAvailable() {
		return nil, coreerr.Invalid("OpenRouter API key not configured", "set "+p.endpoint.APIKeyEnv)
	}

	model := req.Model
	if model == "" {
		model = p.endpoint.DefaultModel
	}

	temp := req.Temperature
	if temp == 0 {
		temp = 0.7
	}

	orreq := &openrouterRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: temp,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}

	body, err := json.Marshal(orreq)
	if err != nil {
		return nil, coreerr.JSON(err)
	}

	resp, err := sendWithRetry(ctx, p.client, p.endpoint.ID, p.endpoint.BaseURL+"/chat/completions", body, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.apiKey,
		"Accept":        "text/event-stream",
		"HTTP-Referer":  "https://github.com/hazyhaar/goclode",
		"X-Title":       "GoClode",
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk, 100)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)

		var tokensIn, tokensOut int

		for scanner.Scan() {
			select {
			case <-ctx.Done():
				ch <- StreamChunk{Error: ctx.Err(), Done: true}
				return
			default:
			}

			line := scanner.Text()

			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")

			if data == "[DONE]" {
				ch <- StreamChunk{Done: true, TokensIn: tokensIn, TokensOut: tokensOut}
				return
			}

			var chunk cerebrasStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}

			if len(chunk.Choices) > 0 {
				delta := chunk.Choices[0].Delta.Content
				if delta != "" {
					ch <- StreamChunk{Delta: delta}
				}

				if chunk.Choices[0].FinishReason != "" {
					if chunk.Usage != nil {
						tokensIn = chunk.Usage.PromptTokens
						tokensOut = chunk.Usage.CompletionTokens
					}
				}
			}
		}

		if err := scanner.Err(); err != nil {
			ch <- StreamChunk{Error: err, Done: true}
		}
	}()

	return ch, nil
}
