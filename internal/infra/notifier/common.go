package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"deltawatch/internal/observability/logging"
	"deltawatch/internal/observability/tracing"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// RateLimitError is a 429 answer from a webhook.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError is a non-429 4xx answer. It is never retried.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError is a 5xx answer.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// isRetryableError reports whether another attempt may succeed: server
// errors and transport errors are retried, client errors are not.
// Rate limits are handled before this check.
func isRetryableError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}
	var rateLimitErr *RateLimitError
	return !errors.As(err, &rateLimitErr)
}


// webhook is the transport shared by the Slack and Discord notifiers.
type webhook struct {
	service     string
	url         string
	httpClient  *http.Client
	rateLimiter *RateLimiter
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

func newWebhook(service, url string, timeout time.Duration, limiter *RateLimiter) *webhook {
	return &webhook{
		service: service,
		url:     url,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: tracing.NewTransport(http.DefaultTransport),
		},
		rateLimiter: limiter,
		maxAttempts: 2,
		baseDelay:   5 * time.Second,
		logger:      slog.Default(),
	}
}

// send posts payload with rate limiting and bounded retries.
func (w *webhook) send(ctx context.Context, payload interface{}, items int) error {
	requestID := uuid.New().String()
	logger := w.logger.With(
		slog.String("request_id", requestID),
		slog.String("channel", w.service),
		slog.Int("items", items))

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	if err := w.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.post(ctx, body)
		if err == nil {
			logger.Info("Webhook notification sent", slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		var delay time.Duration
		var rateLimitErr *RateLimitError
		switch {
		case errors.As(err, &rateLimitErr):
			delay = rateLimitErr.RetryAfter
			logger.Warn("Webhook rate limit hit, backing off",
				slog.Duration("retry_after", delay),
				slog.Int("attempt", attempt))
		case !isRetryableError(err):
			logger.Error("Webhook notification failed with non-retryable error",
				logging.Err(err),
				slog.Int("attempt", attempt))
			return err
		default:
			delay = w.baseDelay * time.Duration(attempt)
			logger.Warn("Webhook request failed, retrying",
				logging.Err(err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
		}

		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
		}
	}

	logger.Error("Webhook notification failed after all retries",
		slog.Any("error", lastErr),
		slog.Int("max_attempts", w.maxAttempts))
	return fmt.Errorf("%s notification failed after %d attempts: %w", w.service, w.maxAttempts, lastErr)
}

func (w *webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    w.service + " rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, respBody),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API client error (%d): %s", w.service, resp.StatusCode, respBody),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API server error (%d): %s", w.service, resp.StatusCode, respBody),
		}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, respBody)
}

// extractRetryAfter reads retry_after (seconds) from a JSON error body,
// then the Retry-After header, and defaults to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}
	if h := resp.Header.Get("Retry-After"); h != "" {
		if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}
