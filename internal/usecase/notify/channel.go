// Package notify fans a newly trending ticker out to every enabled delivery
// channel (Discord, Slack, email). Each channel runs in its own goroutine behind
// a bounded worker pool and a consecutive-failure circuit breaker.
package notify

import (
	"context"

	"trending-watch/internal/domain/entity"
	"trending-watch/internal/infra/notifier"
)

// Channel represents a notification delivery channel.
// Each channel handles its own rate limiting and retries.
// All methods must be safe for concurrent use.
type Channel interface {
	// Name returns the channel identifier used in logs, metrics labels and
	// health endpoints (lowercase, e.g. "discord").
	Name() string

	// IsEnabled returns true if this channel is enabled via configuration.
	IsEnabled() bool

	// Send delivers one ticker alert.
	//
	// Returns:
	//   - ErrChannelDisabled: If Send() called on disabled channel
	//   - ErrInvalidTicker: If the ticker fails validation
	//   - Network/API errors from the underlying notifier
	Send(ctx context.Context, ticker entity.Ticker) error
}

// notifierChannel adapts an infra notifier to the Channel interface.
type notifierChannel struct {
	name     string
	notifier notifier.Notifier
	enabled  bool
}

// NewChannel wraps n as a Channel called name. A nil notifier is replaced by a
// NoOpNotifier.
func NewChannel(name string, n notifier.Notifier, enabled bool) Channel {
	if n == nil {
		n = notifier.NewNoOpNotifier()
	}
	return &notifierChannel{name: name, notifier: n, enabled: enabled}
}

func (c *notifierChannel) Name() string {
	return c.name
}

func (c *notifierChannel) IsEnabled() bool {
	return c.enabled
}

func (c *notifierChannel) Send(ctx context.Context, ticker entity.Ticker) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if err := ticker.Validate(); err != nil {
		return invalidTicker(err)
	}
	return c.notifier.NotifyTicker(ctx, ticker)
}

// NewDiscordChannel creates the "discord" channel. A disabled config yields a
// channel backed by a NoOpNotifier.
func NewDiscordChannel(config notifier.DiscordConfig) Channel {
	if !config.Enabled {
		return NewChannel("discord", nil, false)
	}
	return NewChannel("discord", notifier.NewDiscordNotifier(config), true)
}

// NewSlackChannel creates the "slack" channel.
func NewSlackChannel(config notifier.SlackConfig) Channel {
	if !config.Enabled {
		return NewChannel("slack", nil, false)
	}
	return NewChannel("slack", notifier.NewSlackNotifier(config), true)
}

// NewEmailChannel creates the "email" channel.
func NewEmailChannel(config notifier.EmailConfig) Channel {
	if !config.Enabled {
		return NewChannel("email", nil, false)
	}
	return NewChannel("email", notifier.NewEmailNotifier(config), true)
}
