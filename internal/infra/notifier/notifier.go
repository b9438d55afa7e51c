// Package notifier delivers "new trending ticker" alerts to external services.
// It defines the Notifier interface so that Discord, Slack and email delivery
// can be swapped in through dependency injection.
//
// The package also includes a no-op notifier for when delivery is disabled.
package notifier

import (
	"context"
	"fmt"

	"trending-watch/internal/domain/entity"
)

// Notifier sends a notification about a ticker that just started trending.
// Implementations handle rate limiting, retries, and error logging internally.
type Notifier interface {
	// NotifyTicker delivers one alert for ticker.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - ticker: The newly trending ticker
	//
	// Returns:
	//   - error: Non-nil if the notification failed after all retry attempts
	NotifyTicker(ctx context.Context, ticker entity.Ticker) error
}

// Subject returns the one-line headline used by every channel.
func Subject(ticker entity.Ticker) string {
	return fmt.Sprintf("New WSB trending ticker: %s", ticker)
}

// Body returns the message text used by every channel.
func Body(ticker entity.Ticker) string {
	return fmt.Sprintf("%s just appeared in WSBApp's daily trending list.", ticker)
}
