package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"trending-watch/internal/domain/entity"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// Enabled indicates whether Slack notifications are enabled
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration
}

// SlackNotifier posts ticker alerts to Slack via Incoming Webhook.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retryDelay  time.Duration
	now         func() time.Time
}

// NewSlackNotifier creates a new SlackNotifier.
// Slack accepts one webhook message per second, so the limiter is 1 req/s with
// a burst of 1.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(1.0, 1),
		retryDelay:  webhookBaseDelay,
		now:         time.Now,
	}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`
	Text     *SlackTextObject  `json:"text,omitempty"`
	Elements []SlackTextObject `json:"elements,omitempty"`
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

// buildBlockKitPayload renders a header section with the ticker in bold and a
// context line with the detection time.
func (s *SlackNotifier) buildBlockKitPayload(ticker entity.Ticker) SlackWebhookPayload {
	section := fmt.Sprintf("*%s*\n%s", Subject(ticker), Body(ticker))
	footer := fmt.Sprintf("trending-watch • %s", s.now().UTC().Format(time.RFC3339))

	return SlackWebhookPayload{
		Text: Subject(ticker),
		Blocks: []SlackBlock{
			{Type: "section", Text: &SlackTextObject{Type: "mrkdwn", Text: section}},
			{Type: "context", Elements: []SlackTextObject{{Type: "mrkdwn", Text: footer}}},
		},
	}
}

func (s *SlackNotifier) sendWebhookRequest(ctx context.Context, ticker entity.Ticker) error {
	jsonData, err := json.Marshal(s.buildBlockKitPayload(ticker))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return classifyResponse("Slack", resp, func(resp *http.Response, _ []byte) time.Duration {
		return retryAfterHeader(resp)
	})
}

// NotifyTicker implements Notifier.
func (s *SlackNotifier) NotifyTicker(ctx context.Context, ticker entity.Ticker) error {
	ctx, requestID := withRequestID(ctx)

	slog.Info("Starting Slack notification",
		slog.String("request_id", requestID),
		slog.String("ticker", ticker.String()))

	if err := s.rateLimiter.Allow(ctx); err != nil {
		slog.Error("Rate limiter error",
			slog.String("request_id", requestID),
			slog.String("ticker", ticker.String()),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return deliverWithRetry(ctx, "Slack", ticker, s.retryDelay, func(ctx context.Context) error {
		return s.sendWebhookRequest(ctx, ticker)
	})
}
