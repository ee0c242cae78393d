package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedClient struct {
	calls     int
	responses []func() (string, error)
}

func (s *scriptedClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	_ = ctx
	_ = req
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx]()
}

func fail(err error) func() (string, error) {
	return func() (string, error) { return "", err }
}

func succeed(out string) func() (string, error) {
	return func() (string, error) { return out, nil }
}

func TestRetryingRecoversFromRateLimit(t *testing.T) {
	base := &scriptedClient{responses: []func() (string, error){
		fail(&StatusError{Backend: "test", Code: 429}),
		succeed("ok"),
	}}
	client := NewRetrying(base, "test").WithBaseDelay(time.Millisecond)

	out, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "ok" || base.calls != 2 {
		t.Fatalf("got %q after %d calls, want ok after 2", out, base.calls)
	}
}

func TestRetryingRecoversFromServerError(t *testing.T) {
	base := &scriptedClient{responses: []func() (string, error){
		fail(&StatusError{Backend: "test", Code: 503}),
		fail(&StatusError{Backend: "test", Code: 503}),
		succeed("ok"),
	}}
	client := NewRetrying(base, "test").WithBaseDelay(time.Millisecond)

	if _, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if base.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", base.calls)
	}
}

func TestRetryingClientErrorFailsImmediately(t *testing.T) {
	base := &scriptedClient{responses: []func() (string, error){
		fail(&StatusError{Backend: "test", Code: 401, Message: "bad key"}),
	}}
	client := NewRetrying(base, "test").WithBaseDelay(time.Millisecond)

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if err == nil {
		t.Fatalf("expected error")
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if base.calls != 1 {
		t.Fatalf("client error must not be retried, got %d calls", base.calls)
	}
}

func TestRetryingExhaustionReturnsUpstreamError(t *testing.T) {
	base := &scriptedClient{responses: []func() (string, error){
		fail(&StatusError{Backend: "test", Code: 500}),
	}}
	client := NewRetrying(base, "test").WithBaseDelay(time.Millisecond)

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if err == nil {
		t.Fatalf("expected error")
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upstream.Message != "all attempts failed" {
		t.Fatalf("got message %q", upstream.Message)
	}
	if base.calls != defaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", defaultMaxAttempts, base.calls)
	}
}

func TestShouldRetryConnectionErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"timeout string", errors.New("huggingface request timeout: Client.Timeout exceeded"), true},
		{"validation", errors.New("inference API key is required"), false},
		{"bad request", &StatusError{Backend: "test", Code: 400}, false},
	}
	for _, tc := range cases {
		if got := shouldRetry(tc.err); got != tc.want {
			t.Errorf("%s: shouldRetry=%v, want %v", tc.name, got, tc.want)
		}
	}
}
