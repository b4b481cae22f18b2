// Package ai provides LLM-backed text tagging for movies.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrEmptyReply is returned when a provider answers with no content.
var ErrEmptyReply = errors.New("empty reply")

// Provider is an LLM backend.
type Provider interface {
	// Chat sends the conversation and returns the model's reply.
	Chat(ctx context.Context, messages []Message) (*Response, error)
}

// Message is a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Response is an LLM response.
type Response struct {
	Content string `json:"content,omitempty"`
	Model   string `json:"model,omitempty"`
}

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider uses Ollama for local inference.
type OllamaProvider struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	log         *slog.Logger
}

// OllamaOption configures an OllamaProvider.
type OllamaOption func(*OllamaProvider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) OllamaOption {
	return func(o *OllamaProvider) {
		o.httpClient = hc
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) OllamaOption {
	return func(o *OllamaProvider) {
		o.temperature = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OllamaOption {
	return func(o *OllamaProvider) {
		o.log = l
	}
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(baseURL, model string, opts ...OllamaOption) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	o := &OllamaProvider{
		baseURL:     baseURL,
		model:       model,
		temperature: 0.27,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// Chat sends a non-streaming chat request to Ollama.
func (o *OllamaProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{"temperature": o.temperature},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama error: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", out.Error)
	}

	o.log.Debug("chat completed", "model", out.Model, "duration_ms", time.Since(start).Milliseconds())
	return &Response{Content: out.Message.Content, Model: out.Model}, nil
}

// StaticProvider always answers with the same reply.
type StaticProvider struct {
	Reply string
}

// Chat returns the fixed reply.
func (s StaticProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Response{Content: s.Reply, Model: "static"}, nil
}
