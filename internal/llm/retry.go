package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"juris-backend/internal/shared/telemetry"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second
)

// Retrying wraps a Client with bounded retries and exponential backoff.
// Rate-limit responses, server errors and connection failures are retried;
// other client errors propagate immediately. Either way the caller sees an
// *UpstreamError on final failure.
type Retrying struct {
	base        Client
	backend     string
	maxAttempts int
	baseDelay   time.Duration
}

// NewRetrying wraps base with the default retry policy.
func NewRetrying(base Client, backend string) *Retrying {
	return &Retrying{
		base:        base,
		backend:     backend,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
}

// WithBaseDelay overrides the initial backoff delay.
func (r *Retrying) WithBaseDelay(d time.Duration) *Retrying {
	r.baseDelay = d
	return r
}

// Generate delegates to the wrapped client, retrying transient failures
// with delays of baseDelay, 2*baseDelay, 4*baseDelay, ...
func (r *Retrying) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay << (attempt - 1)
			telemetry.Info("llm.retry", map[string]any{
				"backend": r.backend,
				"attempt": attempt + 1,
				"delay":   delay.String(),
				"error":   lastErr.Error(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &UpstreamError{Backend: r.backend, Message: "canceled during backoff", Err: ctx.Err()}
			}
		}

		out, err := r.base.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		if !shouldRetry(err) {
			return "", &UpstreamError{Backend: r.backend, Message: "request failed", Err: err}
		}
		lastErr = err
	}
	return "", &UpstreamError{Backend: r.backend, Message: "all attempts failed", Err: lastErr}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == 429 || statusErr.Code >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "client.timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
