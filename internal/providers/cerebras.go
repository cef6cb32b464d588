// Package providers - Cerebras LLM provider with SSE streaming
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

// CerebrasProvider implements the Provider interface for Cerebras API
type CerebrasProvider struct {
	endpoint *Endpoint
	client   *http.Client
	apiKey   string
}

// NewCerebrasProvider creates a new Cerebras provider
func NewCerebrasProvider(endpoint *Endpoint) *CerebrasProvider {
	if endpoint == nil {
		endpoint = &Endpoint{
			ID:           "cerebras",
			Name:         "Cerebras",
			BaseURL:      "https://api.cerebras.ai/v1",
			APIKeyEnv:    "CEREBRAS_API_KEY",
			DefaultModel: "llama-3.3-70b",
		}
	}

	return &CerebrasProvider{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for streaming
		},
		apiKey: os.Getenv(endpoint.APIKeyEnv),
	}
}

// ID returns the provider identifier
func (p *CerebrasProvider) ID() string {
	return p.endpoint.ID
}

// Name returns the human-readable name
func (p *CerebrasProvider) Name() string {
	return p.endpoint.Name
}

// Models returns available models
func (p *CerebrasProvider) Models() []string {
	return []string{
		"llama-3.3-70b",
		"llama3.1-8b",
		"llama3.1-70b",
	}
}

// IsAvailable checks if the provider is configured
func (p *CerebrasProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// cerebrasRequest is the Cerebras API request format
type cerebrasRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

// cerebrasResponse is the Cerebras API response format
type cerebrasResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// cerebrasStreamChunk is the SSE chunk format
type cerebrasStreamChunk struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
}

// Generate sends a prompt and returns the full response
func (p *CerebrasProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if !p.IsAvailable() {
		return nil, coreerr.Invalid("Cerebras API key not configured", "set "+p.endpoint.APIKeyEnv)
	}

	model := req.Model
	if model == "" {
		model = p.endpoint.DefaultModel
	}

	temp := req.Temperature
	if temp == 0 {
		temp = 0.7
	}

	cereq := &cerebrasRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: temp,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}

	start := time.Now()
	body, err := json.Marshal(cereq)
	if err != nil {
		return nil, coreerr.JSON(err)
	}

	resp, err := sendWithRetry(ctx, p.client, p.endpoint.ID, p.endpoint.BaseURL+"/chat/completions", body, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.apiKey,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ceres cerebrasResponse
	if err := json.NewDecoder(resp.Body).Decode(&ceres); err != nil {
		return nil, coreerr.JSON(err)
	}

	content := ""
	if len(ceres.Choices) > 0 {
		content = ceres.Choices[0].Message.Content
	}

	return &Response{
		ID:        ceres.ID,
		Model:     ceres.Model,
		Content:   content,
		TokensIn:  ceres.Usage.PromptTokens,
		TokensOut: ceres.Usage.CompletionTokens,
		Latency:   time.Since(start).Milliseconds(),
		Raw:       ceres,
	}, nil
}

// Stream sends a prompt and streams the response
func (p *CerebrasProvider) Stream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	if !p.IsAvailable() {
		return nil, coreerr.Invalid("Cerebras API key not configured", "set "+p.endpoint.APIKeyEnv)
	}

	model := req.Model
	if model == "" {
		model = p.endpoint.DefaultModel
	}

	temp := req.Temperature
	if temp == 0 {
		temp = 0.7
	}

	cereq := &cerebrasRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: temp,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}

	body, err := json.Marshal(cereq)
	if err != nil {
		return nil, coreerr.JSON(err)
	}

	resp, err := sendWithRetry(ctx, p.client, p.endpoint.ID, p.endpoint.BaseURL+"/chat/completions", body, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.apiKey,
		"Accept":        "text/event-stream",
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk, 100)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		// Increase buffer size for large responses
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

			// SSE format: "data: {...}"
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")

			// End of stream
			if data == "[DONE]" {
				ch <- StreamChunk{Done: true, TokensIn: tokensIn, TokensOut: tokensOut}
				return
			}

			var chunk cerebrasStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}

			// Extract content delta
			if len(chunk.Choices) > 0 {
				delta := chunk.Choices[0].Delta.Content
				if delta != "" {
					ch <- StreamChunk{Delta: delta}
				}

				// Check for finish
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
