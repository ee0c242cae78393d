// Package huggingface implements the first-pass model backend against a
// HuggingFace-style text-generation inference endpoint.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"juris-backend/internal/llm"
)

const (
	backendName    = "huggingface"
	defaultTimeout = 90 * time.Second
)

// Client calls a hosted text-generation model over HTTP.
type Client struct {
	apiKey     string
	apiURL     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewClient constructs a first-pass model client.
func NewClient(apiKey, apiURL, model string, maxTokens int, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("inference API URL is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("inference API key is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:    apiKey,
		apiURL:    apiURL,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float32 `json:"temperature"`
	TopP         float32 `json:"top_p"`
	DoSample     bool    `json:"do_sample"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Generate issues one generation call. Transport and 5xx/429 failures come
// back as retryable errors for the llm.Retrying wrapper; other HTTP errors
// are terminal.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	payload, err := json.Marshal(generateRequest{
		Inputs: req.Prompt,
		Parameters: generateParameters{
			MaxNewTokens: maxTokens,
			Temperature:  0.7,
			TopP:         0.95,
			DoSample:     true,
		},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("%s request timeout: %w", backendName, err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", &llm.StatusError{
			Backend: backendName,
			Code:    resp.StatusCode,
			Message: truncate(string(body), 200),
		}
	}

	return parseGeneratedText(body)
}

// parseGeneratedText accepts both response shapes the inference API emits:
// a list of {generated_text} objects or a single object.
func parseGeneratedText(body []byte) (string, error) {
	var asList []generateResponse
	if err := json.Unmarshal(body, &asList); err == nil {
		if len(asList) == 0 {
			return "", fmt.Errorf("%s response empty list", backendName)
		}
		return asList[0].GeneratedText, nil
	}

	var asObject generateResponse
	if err := json.Unmarshal(body, &asObject); err != nil {
		return "", fmt.Errorf("%s response parse: %w", backendName, err)
	}
	return asObject.GeneratedText, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ llm.Client = (*Client)(nil)
