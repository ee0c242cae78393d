package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Client abstracts a text-generation model backend. The first-pass
// (regional) model and the judge (frontier) model both satisfy it; which
// backend handles a given sub-task is a wiring decision, not part of this
// contract.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest captures the inputs for a single generation call.
type GenerateRequest struct {
	Prompt string
	// CacheKey overrides the derived prompt-hash cache key when set.
	CacheKey string
	// MaxTokens overrides the backend default when positive.
	MaxTokens int
}

// UpstreamError reports a model backend failure that the pipeline cannot
// recover from: retries exhausted, or a non-retryable client error.
type UpstreamError struct {
	Backend string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Backend, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Backend, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StatusError is an HTTP-level backend failure. The retry layer uses the
// status code to decide whether another attempt is worthwhile.
type StatusError struct {
	Backend string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: http status %d", e.Backend, e.Code)
	}
	return fmt.Sprintf("%s: http status %d: %s", e.Backend, e.Code, e.Message)
}

// HashPrompt derives a cache key from prompt content.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Mock returns a canned response without any network call. Used when no
// API key is configured so the pipeline stays runnable offline.
type Mock struct {
	Response string
	Calls    int
}

// Generate returns the canned response.
func (m *Mock) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	_ = ctx
	_ = req
	m.Calls++
	return m.Response, nil
}
