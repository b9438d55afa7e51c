package feed

import (
	"errors"
	"fmt"
)

var (
	errMissingType    = errors.New("missing message type")
	errMissingPayload = errors.New("missing payload")
	errMissingMsg     = errors.New("missing payload.data.subscribe.data.payload.msg")
)

// ErrConnClosed is returned by Send after the connection was closed locally.
var ErrConnClosed = errors.New("feed connection closed")

// ProtocolParseError reports an inbound frame that could not be decoded.
// The frame is dropped; the session that received it carries on.
type ProtocolParseError struct {
	// Stage is the decoding layer that failed: envelope, next or msg.
	Stage string
	// Frame is an excerpt of the offending input.
	Frame string
	Err   error
}

func (e *ProtocolParseError) Error() string {
	return fmt.Sprintf("parse %s frame: %v", e.Stage, e.Err)
}

func (e *ProtocolParseError) Unwrap() error {
	return e.Err
}

// TransportError reports a failure of the underlying websocket.
// Code holds the close code sent by the peer, or 0 when the connection failed
// without a close frame.
type TransportError struct {
	Op   string
	Code int
	Err  error
}

func (e *TransportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("feed %s: closed with code %d: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("feed %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PeerClosed reports whether the server ended the connection with a close frame.
func (e *TransportError) PeerClosed() bool {
	return e.Code != 0
}
