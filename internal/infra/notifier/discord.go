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

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// Enabled indicates whether Discord notifications are enabled
	Enabled bool

	// WebhookURL is the Discord webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Discord API calls
	Timeout time.Duration
}

// DiscordNotifier posts ticker alerts to a Discord channel via webhook.
type DiscordNotifier struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retryDelay  time.Duration
	now         func() time.Time
}

// NewDiscordNotifier creates a new DiscordNotifier.
//
// The rate limiter allows 0.5 requests/second with a burst of 3
// (Discord webhook limit: 30 requests per minute).
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(0.5, 3),
		retryDelay:  webhookBaseDelay,
		now:         time.Now,
	}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Color       int                `json:"color"`
	Footer      DiscordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordErrorResponse represents the error response from Discord API.
type DiscordErrorResponse struct {
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after"` // In seconds
}

const (
	discordFooter = "trending-watch"

	// Discord green (#57F287)
	discordGreenColor = 5763719
)

func (d *DiscordNotifier) buildEmbedPayload(ticker entity.Ticker) DiscordWebhookPayload {
	return DiscordWebhookPayload{
		Embeds: []DiscordEmbed{{
			Title:       Subject(ticker),
			Description: Body(ticker),
			Color:       discordGreenColor,
			Footer:      DiscordEmbedFooter{Text: discordFooter},
			Timestamp:   d.now().UTC().Format(time.RFC3339),
		}},
	}
}

func (d *DiscordNotifier) sendWebhookRequest(ctx context.Context, ticker entity.Ticker) error {
	jsonData, err := json.Marshal(d.buildEmbedPayload(ticker))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return classifyResponse("Discord", resp, discordRetryAfter)
}

// discordRetryAfter prefers retry_after from the JSON body over the header.
func discordRetryAfter(resp *http.Response, body []byte) time.Duration {
	var discordErr DiscordErrorResponse
	if err := json.Unmarshal(body, &discordErr); err == nil && discordErr.RetryAfter > 0 {
		return time.Duration(discordErr.RetryAfter * float64(time.Second))
	}
	return retryAfterHeader(resp)
}

// NotifyTicker implements Notifier.
func (d *DiscordNotifier) NotifyTicker(ctx context.Context, ticker entity.Ticker) error {
	ctx, requestID := withRequestID(ctx)

	slog.Info("Starting Discord notification",
		slog.String("request_id", requestID),
		slog.String("ticker", ticker.String()))

	if err := d.rateLimiter.Allow(ctx); err != nil {
		slog.Error("Rate limiter error",
			slog.String("request_id", requestID),
			slog.String("ticker", ticker.String()),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return deliverWithRetry(ctx, "Discord", ticker, d.retryDelay, func(ctx context.Context) error {
		return d.sendWebhookRequest(ctx, ticker)
	})
}
