// Package llm provides a chat-completion client for any OpenAI-compatible
// server. Definition generation, AI assistance, and test runs all go through
// the same Client so the backend (OpenAI, vLLM, Ollama) stays swappable.
package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Temperature presets per operation. Generation is kept cold so structured
// output stays parseable; test runs are warmer to exercise the prompt.
const (
	TempGeneration = 0.2
	TempAssist     = 0.5
	TempTestRun    = 0.7
)

// ErrNoEndpoint is returned by clients constructed without an endpoint.
var ErrNoEndpoint = errors.New("llm: no endpoint configured")

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest is a single completion call.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONMode    bool // request a JSON-object response where the server supports it
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Client sends chat completions.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Model() string
}

// Config configures the chat client.
type Config struct {
	// Endpoint is the base URL of the completion server.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey is sent as a Bearer token when non-empty.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model is the model name sent in the request.
	Model string `json:"model" yaml:"model"`

	// MaxTokens caps completion length when the request does not set one.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Timeout per HTTP request. Default: 120s; completions are slow.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates a Client from config. A client built without an endpoint
// returns ErrNoEndpoint from every call, so misconfiguration surfaces as an
// upstream failure rather than a panic.
func New(cfg Config) Client {
	cfg.defaults()
	if cfg.Endpoint == "" {
		return &unconfiguredClient{model: cfg.Model}
	}
	return newOpenAIClient(cfg)
}

type unconfiguredClient struct {
	model string
}

func (u *unconfiguredClient) Chat(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	return nil, ErrNoEndpoint
}

func (u *unconfiguredClient) Model() string { return u.model }
