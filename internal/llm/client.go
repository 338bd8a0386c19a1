package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrNotConfigured is returned when no API key was provided
var ErrNotConfigured = errors.New("llm client not configured")

// Client wraps the Anthropic API for single-turn completions
type Client struct {
	client *anthropic.Client
	model  string
}

// NewClient creates a client for the given key and model. An empty key
// yields a client whose calls fail with ErrNotConfigured so callers can
// fall back to curated content.
func NewClient(apiKey, model string) *Client {
	if apiKey == "" {
		return &Client{model: model}
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &client, model: model}
}

// Available reports whether the client can make API calls
func (c *Client) Available() bool {
	return c.client != nil
}

// Complete sends a single user prompt and returns the concatenated text blocks
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classifyError(err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	log.Printf("[LLM] completion used %d input / %d output tokens",
		message.Usage.InputTokens, message.Usage.OutputTokens)

	return sb.String(), nil
}

// ExtractJSON locates the first JSON object or array in a model response,
// stripping surrounding prose and markdown fences.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")

	start := objStart
	closer := "}"
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start = arrStart
		closer = "]"
	}
	if start == -1 {
		return "", fmt.Errorf("no JSON found in response")
	}

	end := strings.LastIndex(text, closer)
	if end <= start {
		return "", fmt.Errorf("unterminated JSON in response")
	}

	return text[start : end+1], nil
}

// classifyError rewraps API errors with a readable prefix. The SDK does not
// expose typed errors for these cases, so match on the message.
func classifyError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "authentication") || strings.Contains(msg, "api_key"):
		return fmt.Errorf("anthropic authentication failed: %w", err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate_limit"):
		return fmt.Errorf("anthropic rate limited: %w", err)
	case strings.Contains(msg, "overloaded"):
		return fmt.Errorf("anthropic overloaded: %w", err)
	default:
		return fmt.Errorf("anthropic request failed: %w", err)
	}
}
