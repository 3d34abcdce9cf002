package chat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	appLog "notedesk/internal/log"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("completion API key is not configured")

// UpstreamError wraps a failure reported by, or while reaching, the
// completion endpoint.
type UpstreamError struct {
	// StatusCode is the endpoint's HTTP status, or 0 for transport errors.
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion endpoint returned %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion endpoint: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Completer produces the assistant reply for an assembled message list.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (Message, error)
}

// Defaults for generation parameters.
const (
	DefaultModel       = openai.GPT4oMini
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
	DefaultTimeout     = 60 * time.Second
)

// ClientConfig configures the completion client.
type ClientConfig struct {
	// Endpoint is the API base URL, e.g. "https://api.openai.com/v1".
	// Empty uses the library default.
	Endpoint    string
	APIKey      string
	Model    string
	// Temperature nil means DefaultTemperature; 0 is greedy sampling.
	Temperature *float32
	MaxTokens   int
	Timeout     time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	api         *openai.Client
	cfg         ClientConfig
	temperature float32
}

// NewClient never fails; a missing key surfaces as ErrNotConfigured on
// each Complete call.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	temperature := float32(DefaultTemperature)
	if cfg.Temperature != nil && *cfg.Temperature >= 0 {
		temperature = *cfg.Temperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if ep := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); ep != "" {
		oc.BaseURL = ep
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:         openai.NewClientWithConfig(oc),
		cfg:         cfg,
		temperature: temperature,
	}
}

// Complete sends messages verbatim and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []Message) (Message, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return Message{}, ErrNotConfigured
	}

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: c.temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if req.Temperature == 0 {
		// The request field is omitempty; zero would fall back to the
		// server default.
		req.Temperature = math.SmallestNonzeroFloat32
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		uerr := &UpstreamError{Err: err}
		var apiErr *openai.APIError
		var reqErr *openai.RequestError
		switch {
		case errors.As(err, &apiErr):
			uerr.StatusCode = apiErr.HTTPStatusCode
		case errors.As(err, &reqErr):
			uerr.StatusCode = reqErr.HTTPStatusCode
		}
		appLog.Error("chat completion failed", err, "model", c.cfg.Model, "status", uerr.StatusCode)
		return Message{}, uerr
	}
	if len(resp.Choices) == 0 {
		return Message{}, &UpstreamError{Err: errors.New("response contained no choices")}
	}

	appLog.Debug("chat completion done",
		"model", c.cfg.Model,
		"messages", len(messages),
		"total_tokens", resp.Usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	choice := resp.Choices[0].Message
	role := Role(choice.Role)
	if role == "" {
		role = RoleAssistant
	}
	return Message{Role: role, Content: choice.Content}, nil
}
