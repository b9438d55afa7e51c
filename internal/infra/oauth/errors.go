package oauth

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by NewRefreshTokenSource for incomplete configuration.
var ErrInvalidConfig = errors.New("invalid oauth configuration")

// AuthError reports a failed credential exchange: a transport failure, a non-2xx
// status, a malformed body or an open circuit breaker. It is never fatal; the
// caller retries after its reconnect delay.
type AuthError struct {
	// StatusCode is the HTTP status of the token endpoint, 0 if none was received.
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	msg := "token exchange failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
