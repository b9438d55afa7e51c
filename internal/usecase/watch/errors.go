package watch

import (
	"fmt"
)

// CloseReason says why a session ended.
type CloseReason string

const (
	// ReasonRenewal: the credential was about to expire and the session closed itself.
	ReasonRenewal CloseReason = "renewal"
	// ReasonServerClosed: the server sent a close frame.
	ReasonServerClosed CloseReason = "server_closed"
	// ReasonTransportError: a read or write on the connection failed.
	ReasonTransportError CloseReason = "transport_error"
	// ReasonDialFailed: the connection could not be opened.
	ReasonDialFailed CloseReason = "dial_failed"
	// ReasonCanceled: the caller's context ended.
	ReasonCanceled CloseReason = "canceled"
)

// SessionClosedError is returned by Session.Run and describes how the session ended.
// A session always ends with one, including the planned renewal close.
type SessionClosedError struct {
	Reason CloseReason
	// Code is the websocket close code sent by the server, 0 if none.
	Code int
	// Subscribed reports whether the session got as far as a subscription.
	Subscribed bool
	Err        error
}

func (e *SessionClosedError) Error() string {
	msg := fmt.Sprintf("session closed: %s", e.Reason)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SessionClosedError) Unwrap() error {
	return e.Err
}
