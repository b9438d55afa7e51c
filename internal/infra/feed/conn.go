package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 15 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	closeGracePeriod        = time.Second

	// MaxFrameBytes caps one inbound message; a larger one ends the connection.
	MaxFrameBytes = 1 << 20
)

// DialConfig describes how to reach the feed endpoint.
type DialConfig struct {
	// URL is the websocket endpoint, e.g. wss://gql-realtime.reddit.com/query.
	URL string

	// Origin is sent as the Origin header.
	Origin string

	// UserAgent is sent as the User-Agent header.
	UserAgent string

	// Cookie is sent verbatim as the Cookie header when non-empty.
	// Build it with SessionCookie.
	Cookie string

	// HandshakeTimeout bounds the opening handshake (default 15s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds every outbound message (default 10s).
	WriteTimeout time.Duration
}

// SessionCookie builds the Cookie header value for the optional browser
// session values. It returns "" when both are empty.
func SessionCookie(redditSession, loid string) string {
	if redditSession == "" && loid == "" {
		return ""
	}
	return fmt.Sprintf("reddit_session=%s; loid=%s", redditSession, loid)
}

// Dialer opens feed connections.
type Dialer struct {
	cfg    DialConfig
	dialer *websocket.Dialer
}

// NewDialer creates a Dialer negotiating the graphql-transport-ws subprotocol.
func NewDialer(cfg DialConfig) *Dialer {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	return &Dialer{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			Subprotocols:     []string{Subprotocol},
		},
	}
}

// Dial opens a connection. A returned error is a *TransportError.
func (d *Dialer) Dial(ctx context.Context) (*Conn, error) {
	header := http.Header{}
	if d.cfg.Origin != "" {
		header.Set("Origin", d.cfg.Origin)
	}
	if d.cfg.UserAgent != "" {
		header.Set("User-Agent", d.cfg.UserAgent)
	}
	if d.cfg.Cookie != "" {
		header.Set("Cookie", d.cfg.Cookie)
	}

	ws, resp, err := d.dialer.DialContext(ctx, d.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, &TransportError{Op: "dial", Err: err}
	}

	return NewConn(ws, d.cfg.WriteTimeout), nil
}

// Conn is an open feed connection. ReadFrame must be called from a single
// goroutine; Send and Close may be called concurrently with it.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an established websocket connection.
func NewConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	ws.SetReadLimit(MaxFrameBytes)
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

// ReadFrame blocks until the next text or binary message arrives.
// Errors are *TransportError, with Code set when the peer sent a close frame.
func (c *Conn) ReadFrame() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		terr := &TransportError{Op: "read", Err: err}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			terr.Code = closeErr.Code
		}
		return nil, terr
	}
	return data, nil
}

// Send encodes env as JSON and writes it as one text message.
func (c *Conn) Send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", env.Type, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return &TransportError{Op: "write", Err: ErrConnClosed}
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Close sends a normal-closure frame and closes the socket, which unblocks a
// pending ReadFrame. Calling Close more than once is safe.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.closed = true
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		c.writeMu.Unlock()

		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
