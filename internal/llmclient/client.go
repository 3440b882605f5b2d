// Package llmclient is a small OpenAI-compatible chat completions
// client used by the translation engine. It speaks to any provider
// that exposes a /chat/completions endpoint (OpenRouter, OpenAI,
// locally hosted gateways, ...).
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/larkspur-labs/subproxy/internal/apperr"
)

type Config struct {
	APIKey      string
	APIURL      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("llm api error: %s (%s)", e.Message, e.Type)
}

// Client is a thread-safe chat completions client.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.NotConfigured, "llm client misconfigured", err)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Chat sends a system+user message pair and returns the assistant's
// reply text.
func (c *Client) Chat(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userMessage},
	}

	req := chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to marshal chat request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to build chat request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", apperr.Wrap(apperr.UpstreamUnavailable, "llm request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.UpstreamUnavailable, "failed to read llm response", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperr.Wrap(apperr.UpstreamUnavailable, "failed to parse llm response", err)
	}

	if parsed.Error != nil {
		return "", apperr.Wrap(apperr.UpstreamUnavailable, "llm returned an error", parsed.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperr.New(apperr.UpstreamUnavailable, fmt.Sprintf("llm request failed with status %d", resp.StatusCode))
	}
	if len(parsed.Choices) == 0 {
		return "", apperr.New(apperr.UpstreamUnavailable, "llm returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// Model reports the configured model name, used by the engine to
// auto-tune batch size per provider.
func (c *Client) Model() string {
	return c.config.Model
}

// APIURL reports the configured chat completions endpoint, used by the
// engine to distinguish a local/self-hosted gateway from a cloud
// provider when auto-tuning batch size and fan-out.
func (c *Client) APIURL() string {
	return c.config.APIURL
}
