package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"trending-watch/internal/domain/entity"
	"trending-watch/internal/resilience/retry"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "request_id"

// Webhook delivery policy shared by Discord and Slack.
const (
	webhookMaxAttempts = 2
	webhookBaseDelay   = 5 * time.Second
	defaultRetryAfter  = 5 * time.Second
	maxErrorBodyBytes  = 4 << 10
)

// RateLimitError represents a 429 rate limit error from a webhook service.
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

// ClientError represents a 4xx client error from a webhook service.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx server error from a webhook service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// is429Error checks if the error is a rate limit error and extracts retry_after.
func is429Error(err error) (*RateLimitError, bool) {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr, true
	}
	return nil, false
}

// isRetryableError checks if the error is worth retrying.
// Client errors (4xx) are not retryable; rate limits are handled by is429Error.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return false
	}

	// Network errors
	return true
}

// withRequestID attaches a fresh request ID to ctx for log correlation.
func withRequestID(ctx context.Context) (context.Context, string) {
	requestID := uuid.New().String()
	return context.WithValue(ctx, requestIDKey, requestID), requestID
}

func requestIDFrom(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

// classifyResponse maps a webhook response to nil or one of the typed errors.
// retryAfter extracts the server's requested pause from a 429 response.
func classifyResponse(service string, resp *http.Response, retryAfter func(*http.Response, []byte) time.Duration) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    service + " rate limit exceeded",
			RetryAfter: retryAfter(resp, body),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API client error: %s", service, string(body)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API server error: %s", service, string(body)),
		}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// retryAfterHeader reads the Retry-After header in seconds, defaulting to 5s.
func retryAfterHeader(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultRetryAfter
}

// deliverWithRetry runs send up to webhookMaxAttempts times.
//
// Retry strategy:
//   - 429 errors: wait for the server's retry_after
//   - Server and network errors: linear backoff (baseDelay, 2*baseDelay)
//   - Client errors (4xx): fail immediately
func deliverWithRetry(ctx context.Context, service string, ticker entity.Ticker, baseDelay time.Duration, send func(context.Context) error) error {
	requestID := requestIDFrom(ctx)

	var lastErr error
	for attempt := 1; attempt <= webhookMaxAttempts; attempt++ {
		err := send(ctx)
		if err == nil {
			slog.Info(service+" notification successful",
				slog.String("request_id", requestID),
				slog.String("ticker", ticker.String()),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn(service+" rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.String("ticker", ticker.String()),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))
			if err := retry.Sleep(ctx, rateLimitErr.RetryAfter); err != nil {
				return fmt.Errorf("context canceled during rate limit backoff: %w", err)
			}
			continue
		}

		if !isRetryableError(err) {
			slog.Error(service+" notification failed with non-retryable error",
				slog.String("request_id", requestID),
				slog.String("ticker", ticker.String()),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < webhookMaxAttempts {
			delay := baseDelay * time.Duration(attempt)
			slog.Warn(service+" request failed, retrying",
				slog.String("request_id", requestID),
				slog.String("ticker", ticker.String()),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			if err := retry.Sleep(ctx, delay); err != nil {
				return fmt.Errorf("context canceled during retry backoff: %w", err)
			}
		}
	}

	slog.Error(service+" notification failed after all retries",
		slog.String("request_id", requestID),
		slog.String("ticker", ticker.String()),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", webhookMaxAttempts))

	return fmt.Errorf("%s notification failed after %d attempts: %w", service, webhookMaxAttempts, lastErr)
}
