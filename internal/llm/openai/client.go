// Package openai implements the judge model backend on the OpenAI chat
// completions API via github.com/sashabaranov/go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"juris-backend/internal/llm"
)

const backendName = "openai"

// Client calls an OpenAI chat model.
type Client struct {
	client    *goopenai.Client
	model     string
	maxTokens int
}

// NewClient constructs a judge model client.
func NewClient(apiKey, model string, maxTokens int) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("judge API key is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("judge model is required")
	}
	return &Client{
		client:    goopenai.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Generate issues one chat completion. API errors carry their HTTP status
// so the retry layer can distinguish rate limits and server errors from
// terminal client errors.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	chatReq := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	// Reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens instead of MaxTokens.
	if isReasoningModel(c.model) {
		chatReq.MaxCompletionTokens = maxTokens
	} else {
		chatReq.MaxTokens = maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", &llm.StatusError{
				Backend: backendName,
				Code:    apiErr.HTTPStatusCode,
				Message: apiErr.Message,
			}
		}
		return "", fmt.Errorf("%s chat completion: %w", backendName, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s response missing choices", backendName)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%s response empty content", backendName)
	}
	return content, nil
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4") || strings.HasPrefix(m, "gpt-5")
}

var _ llm.Client = (*Client)(nil)
