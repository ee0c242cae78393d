package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"juris-backend/internal/llm"
)

func TestIsReasoningModel(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "o1", model: "o1-mini", want: true},
		{name: "o3", model: "o3", want: true},
		{name: "o4", model: "o4-mini", want: true},
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4o", model: "gpt-4o-mini", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isReasoningModel(tt.model); got != tt.want {
				t.Fatalf("isReasoningModel(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

// newTestClient points the SDK at a local server so request bodies can be
// inspected.
func newTestClient(t *testing.T, model string, maxTokens int, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := goopenai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return &Client{
		client:    goopenai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

func captureBody(t *testing.T, mu *sync.Mutex, dst *map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		*dst = payload
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"quality_score\":8}"}}]}`))
	}
}

func TestGenerateUsesMaxCompletionTokensForReasoningModels(t *testing.T) {
	var mu sync.Mutex
	var lastBody map[string]any
	client := newTestClient(t, "gpt-5-mini", 512, captureBody(t, &mu, &lastBody))

	out, err := client.Generate(context.Background(), llm.GenerateRequest{Prompt: "評估以下分析"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"quality_score":8}` {
		t.Fatalf("content = %q", out)
	}

	mu.Lock()
	defer mu.Unlock()
	if lastBody["max_completion_tokens"] != float64(512) {
		t.Fatalf("max_completion_tokens = %v, want 512", lastBody["max_completion_tokens"])
	}
	if _, ok := lastBody["max_tokens"]; ok {
		t.Fatalf("max_tokens must be omitted for reasoning models, body = %v", lastBody)
	}
}

func TestGenerateUsesMaxTokensForChatModels(t *testing.T) {
	var mu sync.Mutex
	var lastBody map[string]any
	client := newTestClient(t, "gpt-4o-mini", 512, captureBody(t, &mu, &lastBody))

	if _, err := client.Generate(context.Background(), llm.GenerateRequest{Prompt: "p", MaxTokens: 256}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if lastBody["max_tokens"] != float64(256) {
		t.Fatalf("max_tokens = %v, want 256 (request override)", lastBody["max_tokens"])
	}
	if _, ok := lastBody["max_completion_tokens"]; ok {
		t.Fatalf("max_completion_tokens must be omitted for chat models, body = %v", lastBody)
	}
}

func TestGenerateAPIErrorBecomesStatusError(t *testing.T) {
	client := newTestClient(t, "gpt-4o-mini", 512, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"rate_limit_error"}}`))
	})

	_, err := client.Generate(context.Background(), llm.GenerateRequest{Prompt: "p"})
	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", statusErr.Code)
	}
	if statusErr.Backend != backendName {
		t.Fatalf("backend = %q", statusErr.Backend)
	}
}

func TestGenerateEmptyContentIsError(t *testing.T) {
	client := newTestClient(t, "gpt-4o-mini", 512, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"   "}}]}`))
	})

	if _, err := client.Generate(context.Background(), llm.GenerateRequest{Prompt: "p"}); err == nil {
		t.Fatal("blank content must be rejected")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "gpt-4o-mini", 10); err == nil {
		t.Fatal("missing API key must be rejected")
	}
	if _, err := NewClient("key", "", 10); err == nil {
		t.Fatal("missing model must be rejected")
	}
}
