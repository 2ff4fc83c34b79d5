// Package llm wraps an OpenAI-compatible chat completion API for the tutor.
// Every call carries a timeout and bounded retries; the rest of the system
// treats this package's failures as a signal to fall back to fixed responses,
// so errors are classified rather than retried forever.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind classifies a failed generation call.
type ErrorKind string

const (
	ErrRateLimit    ErrorKind = "rate_limit"
	ErrConnectivity ErrorKind = "connectivity"
	ErrAuth         ErrorKind = "auth"
	ErrMalformed    ErrorKind = "malformed"
	ErrUnknown      ErrorKind = "unknown"
)

// Error wraps a generation failure with its classification.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("llm %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Classify returns the ErrorKind of err, or ErrUnknown.
func Classify(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ErrUnknown
}

// Message is one turn of context for a completion request.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Request describes one chat completion call.
type Request struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Client wraps an OpenAI-compatible API client with timeout and retry policy.
type Client struct {
	api        *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int

	promptTokens     atomic.Int64
	completionTokens atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-call deadline (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the retry budget for transient failures (default 2).
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// New creates a new generation client against an OpenAI-compatible endpoint.
func New(baseURL, apiKey, modelName string, opts ...Option) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c := &Client{
		api:        openai.NewClientWithConfig(config),
		model:      modelName,
		timeout:    30 * time.Second,
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete runs one chat completion. Transient failures (rate limits,
// connectivity, server errors) are retried with exponential backoff up to the
// retry budget; auth and malformed-response failures return immediately.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	chatMsgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	ccr := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMsgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			slog.Debug("retrying generation call", "attempt", attempt, "wait", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", &Error{Kind: ErrConnectivity, Err: ctx.Err()}
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateChatCompletion(callCtx, ccr)
		cancel()
		if err != nil {
			lastErr = classifyAPIError(err)
			if !retryable(lastErr) {
				return "", lastErr
			}
			continue
		}

		c.promptTokens.Add(int64(resp.Usage.PromptTokens))
		c.completionTokens.Add(int64(resp.Usage.CompletionTokens))

		if len(resp.Choices) == 0 {
			return "", &Error{Kind: ErrMalformed, Err: errors.New("no choices in response")}
		}
		content := resp.Choices[0].Message.Content
		if strings.TrimSpace(content) == "" {
			return "", &Error{Kind: ErrMalformed, Err: errors.New("empty completion")}
		}
		return content, nil
	}
	return "", lastErr
}

// Ping verifies the endpoint is reachable with a minimal completion.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Complete(ctx, Request{
		Messages:  []Message{{Role: openai.ChatMessageRoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	if err != nil && Classify(err) == ErrMalformed {
		// Reachable but terse; good enough for a health check.
		return nil
	}
	return err
}

// TokenUsage reports cumulative prompt and completion tokens spent.
func (c *Client) TokenUsage() (prompt, completion int64) {
	return c.promptTokens.Load(), c.completionTokens.Load()
}

func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return &Error{Kind: ErrRateLimit, Err: err}
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return &Error{Kind: ErrAuth, Err: err}
		case apiErr.HTTPStatusCode >= 500:
			return &Error{Kind: ErrConnectivity, Err: err}
		default:
			return &Error{Kind: ErrUnknown, Err: err}
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrConnectivity, Err: err}
	}
	return &Error{Kind: ErrUnknown, Err: err}
}

func retryable(err error) bool {
	switch Classify(err) {
	case ErrRateLimit, ErrConnectivity:
		return true
	default:
		return false
	}
}
