// Package advisor generates transaction advice through the OpenAI chat
// API. Callers treat it as best-effort: any failure here degrades to
// canned recommendations upstream.
package advisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("advisor: API key is required")

// ErrEmptyReply is returned when the model produces no output.
var ErrEmptyReply = errors.New("advisor: model returned no choices")

// DefaultModel balances latency and cost for short advisory replies.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are a blockchain transaction safety advisor. " +
	"You give short, concrete recommendations to users about to send a transaction. " +
	"Always answer in the exact format the user requests."

// chatCompleter is the slice of the OpenAI client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client generates advice text with a fixed model and system prompt.
type Client struct {
	api   chatCompleter
	model string
}

// Option configures the client.
type Option func(*Client)

// WithCompleter sets a custom chat backend (useful for testing).
func WithCompleter(api chatCompleter) Option {
	return func(c *Client) { c.api = api }
}

// New creates an advisor backed by the OpenAI API.
func New(apiKey, model string, opts ...Option) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	c := &Client{model: model}
	for _, opt := range opts {
		opt(c)
	}

	if c.api == nil {
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		c.api = openai.NewClient(apiKey)
	}
	return c, nil
}

// Generate sends the prompt and returns the model's reply text untouched.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}
