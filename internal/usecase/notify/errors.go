package notify

import (
	"errors"
	"fmt"
)

// Sentinel errors for notify use case operations.
var (
	// ErrChannelDisabled indicates that Send() was called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrInvalidTicker indicates the ticker is empty or malformed.
	ErrInvalidTicker = errors.New("invalid ticker")

	// ErrServiceClosed is returned by NotifyTicker after Shutdown.
	ErrServiceClosed = errors.New("notification service is shut down")
)

func invalidTicker(cause error) error {
	return fmt.Errorf("%w: %w", ErrInvalidTicker, cause)
}
