package watch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trending-watch/internal/domain/entity"
	"trending-watch/internal/infra/feed"
)

var errPeerGone = errors.New("peer closed the connection")

// fakeTransport replays scripted inbound frames. When the script is exhausted
// (inbound closed) the next read reports a normal closure from the server.
type fakeTransport struct {
	inbound chan []byte

	mu      sync.Mutex
	sent    []feed.Envelope
	sendErr error

	closed     chan struct{}
	closeOnce  sync.Once
	closeCalls int
}

func newFakeTransport(frames ...string) *fakeTransport {
	t := &fakeTransport{
		inbound: make(chan []byte, len(frames)+16),
		closed:  make(chan struct{}),
	}
	for _, f := range frames {
		t.inbound <- []byte(f)
	}
	return t
}

// script closes the inbound stream after the queued frames.
func (t *fakeTransport) script() *fakeTransport {
	close(t.inbound)
	return t
}

func (t *fakeTransport) ReadFrame() ([]byte, error) {
	select {
	case data, ok := <-t.inbound:
		if !ok {
			return nil, &feed.TransportError{Op: "read", Code: 1000, Err: errPeerGone}
		}
		return data, nil
	case <-t.closed:
		return nil, &feed.TransportError{Op: "read", Err: feed.ErrConnClosed}
	}
}

func (t *fakeTransport) Send(env feed.Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, env)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closeCalls++
	t.mu.Unlock()
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) sentTypes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	types := make([]string, 0, len(t.sent))
	for _, env := range t.sent {
		types = append(types, env.Type)
	}
	return types
}

func (t *fakeTransport) sentEnvelopes() []feed.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]feed.Envelope(nil), t.sent...)
}

func (t *fakeTransport) closeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCalls
}

func dialTo(tr Transport) DialFunc {
	return func(ctx context.Context) (Transport, error) { return tr, nil }
}

// recordingNotifier remembers every ticker it was asked to deliver.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []entity.Ticker
	err   error
}

func (n *recordingNotifier) NotifyTicker(ctx context.Context, ticker entity.Ticker) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, ticker)
	return n.err
}

func (n *recordingNotifier) tickers() []entity.Ticker {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]entity.Ticker(nil), n.calls...)
}

// fakeTimer captures the renewal schedule instead of arming a real timer.
type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func()
	stopped bool
	armed   chan struct{}
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{armed: make(chan struct{})}
}

func (f *fakeTimer) afterFunc(d time.Duration, fn func()) stopper {
	f.mu.Lock()
	f.delay = d
	f.fire = fn
	f.mu.Unlock()
	close(f.armed)
	return f
}

func (f *fakeTimer) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	wasActive := !f.stopped
	f.stopped = true
	return wasActive
}

func (f *fakeTimer) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeTimer) trigger() {
	f.mu.Lock()
	fn := f.fire
	f.mu.Unlock()
	fn()
}

const (
	ackFrame  = `{"type":"connection_ack"}`
	pingFrame = `{"type":"ping"}`
)

// nextFrame builds a data frame carrying tickers in the doubly encoded form the
// feed uses.
func nextFrame(t *testing.T, tickers ...string) string {
	t.Helper()
	frame, err := encodeNextFrame(tickers)
	require.NoError(t, err)
	return frame
}

// nextFrameRaw is nextFrame for callers without a *testing.T.
func nextFrameRaw(tickers ...string) string {
	frame, err := encodeNextFrame(tickers)
	if err != nil {
		panic(err)
	}
	return frame
}

func encodeNextFrame(tickers []string) (string, error) {
	inner, err := json.Marshal(map[string]any{
		"data": map[string]any{"appData": map[string]any{"trendingTickersDaily": tickers}},
	})
	if err != nil {
		return "", err
	}

	outer, err := json.Marshal(map[string]any{
		"id":   "1",
		"type": "next",
		"payload": map[string]any{
			"data": map[string]any{
				"subscribe": map[string]any{
					"data": map[string]any{"payload": map[string]any{"msg": string(inner)}},
				},
			},
		},
	})
	return string(outer), err
}

func testCredential(token string, ttlSeconds int) *entity.Credential {
	return &entity.Credential{Token: token, ExpiresInSeconds: ttlSeconds, IssuedAt: time.Now()}
}
