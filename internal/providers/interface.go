// Package providers adapts upstream LLM HTTP APIs behind one Provider
// interface, so the retry controller never needs to see a provider-specific
// client directly.
package providers

import (
	"context"
)

// Provider is the interface every upstream LLM API implements.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Generate sends a prompt and returns the full response.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Stream sends a prompt and streams the response.
	Stream(ctx context.Context, req *Request) (<-chan StreamChunk, error)

	// Models returns the models this provider exposes.
	Models() []string

	// IsAvailable reports whether the provider is configured.
	IsAvailable() bool
}

// Request is a generation request.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`

	// Provider-specific options
	Options map[string]interface{} `json:"options,omitempty"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Response is a generation response.
type Response struct {
	ID        string `json:"id"`
	Model     string `json:"model"`
	Content   string `json:"content"`
	TokensIn  int    `json:"tokens_in"`
	TokensOut int    `json:"tokens_out"`
	Latency   int64  `json:"latency_ms"`

	// Raw response for debugging
	Raw interface{} `json:"raw,omitempty"`
}

// StreamChunk is one piece of a streaming response.
type StreamChunk struct {
	Delta     string `json:"delta"`
	TokensIn  int    `json:"tokens_in,omitempty"`
	TokensOut int    `json:"tokens_out,omitempty"`
	Done      bool   `json:"done"`
	Error     error  `json:"error,omitempty"`
}

// Endpoint is the static wiring for one provider: where it lives, which env
// var carries its credential, and what model it defaults to absent an
// explicit request override. Registry builds these from config.ProviderConfig
// — project configuration, not a database table, is now the single source
// of truth for provider wiring.
type Endpoint struct {
	ID           string
	Name         string
	BaseURL      string
	APIKeyEnv    string
	DefaultModel string
	Priority     int
	RateLimitRPM int
}
