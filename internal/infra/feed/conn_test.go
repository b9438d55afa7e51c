package feed

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedServer accepts one websocket connection and hands it to handle.
// The request headers seen during the upgrade are sent on the returned channel.
func feedServer(t *testing.T, handle func(*websocket.Conn)) (*httptest.Server, <-chan http.Header) {
	t.Helper()

	headers := make(chan http.Header, 1)
	upgrader := websocket.Upgrader{
		CheckOrigin:  func(r *http.Request) bool { return true },
		Subprotocols: []string{Subprotocol},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = ws.Close() }()
		handle(ws)
	}))
	t.Cleanup(srv.Close)
	return srv, headers
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialer_SendsHeadersAndSubprotocol(t *testing.T) {
	srv, headers := feedServer(t, func(ws *websocket.Conn) {
		_, _, _ = ws.ReadMessage()
	})

	d := NewDialer(DialConfig{
		URL:       wsURL(srv),
		Origin:    "https://www.reddit.com",
		UserAgent: "trending-watch-test/1.0",
		Cookie:    SessionCookie("sess", "lo"),
	})

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	h := <-headers
	assert.Equal(t, "https://www.reddit.com", h.Get("Origin"))
	assert.Equal(t, "trending-watch-test/1.0", h.Get("User-Agent"))
	assert.Equal(t, "reddit_session=sess; loid=lo", h.Get("Cookie"))
	assert.Equal(t, Subprotocol, h.Get("Sec-Websocket-Protocol"))
	assert.Equal(t, Subprotocol, conn.ws.Subprotocol())
}

func TestDialer_OmitsEmptyCookie(t *testing.T) {
	srv, headers := feedServer(t, func(ws *websocket.Conn) {
		_, _, _ = ws.ReadMessage()
	})

	conn, err := NewDialer(DialConfig{URL: wsURL(srv), Cookie: SessionCookie("", "")}).Dial(context.Background())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	h := <-headers
	assert.Empty(t, h.Get("Cookie"))
}

func TestDialer_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	_, err := NewDialer(DialConfig{URL: url, HandshakeTimeout: time.Second}).Dial(context.Background())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "dial", terr.Op)
	assert.False(t, terr.PeerClosed())
}

func TestConn_SendAndReadFrame(t *testing.T) {
	srv, _ := feedServer(t, func(ws *websocket.Conn) {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		// echo the init back and then send a ping
		_ = ws.WriteMessage(websocket.TextMessage, data)
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		_, _, _ = ws.ReadMessage()
	})

	conn, err := NewDialer(DialConfig{URL: wsURL(srv)}).Dial(context.Background())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.Send(ConnectionInit("tok")))

	echoed, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"connection_init","payload":{"Authorization":"Bearer tok"}}`, string(echoed))

	ping, err := conn.ReadFrame()
	require.NoError(t, err)
	env, err := DecodeEnvelope(ping)
	require.NoError(t, err)
	assert.Equal(t, TypePing, env.Type)
}

func TestConn_PeerCloseCode(t *testing.T) {
	srv, _ := feedServer(t, func(ws *websocket.Conn) {
		msg := websocket.FormatCloseMessage(4403, "forbidden")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})

	conn, err := NewDialer(DialConfig{URL: wsURL(srv)}).Dial(context.Background())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = conn.ReadFrame()

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 4403, terr.Code)
	assert.True(t, terr.PeerClosed())
}

func TestConn_OversizedFrameFailsRead(t *testing.T) {
	srv, _ := feedServer(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		_ = ws.WriteMessage(websocket.TextMessage, bytes.Repeat([]byte("x"), MaxFrameBytes+1))
		_, _, _ = ws.ReadMessage()
	})

	conn, err := NewDialer(DialConfig{URL: wsURL(srv)}).Dial(context.Background())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = conn.ReadFrame()
	require.NoError(t, err)

	_, err = conn.ReadFrame()

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "read", terr.Op)
	assert.ErrorIs(t, err, websocket.ErrReadLimit)
}

func TestConn_CloseUnblocksReadAndIsIdempotent(t *testing.T) {
	release := make(chan struct{})
	srv, _ := feedServer(t, func(ws *websocket.Conn) {
		<-release
	})
	defer close(release)

	conn, err := NewDialer(DialConfig{URL: wsURL(srv)}).Dial(context.Background())
	require.NoError(t, err)

	readErr := make(chan error, 1)
	go func() {
		_, err := conn.ReadFrame()
		readErr <- err
	}()

	_ = conn.Close()
	_ = conn.Close()

	select {
	case err := <-readErr:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadFrame did not return after Close")
	}

	err = conn.Send(Pong())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, ErrConnClosed)
}
