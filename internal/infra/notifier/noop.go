package notifier

import (
	"context"

	"trending-watch/internal/domain/entity"
)

// NoOpNotifier discards every notification.
// It is used when no delivery channel is configured.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// NotifyTicker always returns nil.
func (n *NoOpNotifier) NotifyTicker(ctx context.Context, ticker entity.Ticker) error {
	return nil
}
