package watch

import (
	"context"

	"trending-watch/internal/domain/entity"
)

// Notifier delivers one newly seen ticker. Delivery is best effort: an error is
// logged by the session and the ticker stays recorded as seen.
// Implementations must return within a bounded time.
type Notifier interface {
	NotifyTicker(ctx context.Context, ticker entity.Ticker) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ticker entity.Ticker) error

// NotifyTicker calls f(ctx, ticker).
func (f NotifierFunc) NotifyTicker(ctx context.Context, ticker entity.Ticker) error {
	return f(ctx, ticker)
}
