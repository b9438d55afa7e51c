package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trending-watch/internal/usecase/notify"
)

type stubHealth []notify.ChannelHealthStatus

func (s stubHealth) GetChannelHealth() []notify.ChannelHealthStatus { return s }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	newMetricsHandler(stubHealth(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestChannelHealthHandler(t *testing.T) {
	until := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		statuses    stubHealth
		wantCode    int
		wantHealthy bool
	}{
		{
			name:        "no channels",
			wantCode:    http.StatusOK,
			wantHealthy: true,
		},
		{
			name: "all closed",
			statuses: stubHealth{
				{Name: "discord", Enabled: true},
				{Name: "email", Enabled: true},
			},
			wantCode:    http.StatusOK,
			wantHealthy: true,
		},
		{
			name: "enabled channel open",
			statuses: stubHealth{
				{Name: "discord", Enabled: true, CircuitBreakerOpen: true, DisabledUntil: &until},
				{Name: "slack", Enabled: true},
			},
			wantCode:    http.StatusServiceUnavailable,
			wantHealthy: false,
		},
		{
			name: "disabled channel open",
			statuses: stubHealth{
				{Name: "slack", Enabled: false, CircuitBreakerOpen: true},
			},
			wantCode:    http.StatusOK,
			wantHealthy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newMetricsHandler(tt.statuses).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/channels", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ChannelHealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantHealthy, body.Healthy)
			assert.Len(t, body.Channels, len(tt.statuses))
		})
	}
}

func TestChannelHealthHandler_DisabledUntil(t *testing.T) {
	until := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	h := stubHealth{{Name: "discord", Enabled: true, CircuitBreakerOpen: true, DisabledUntil: &until}}

	rec := httptest.NewRecorder()
	newMetricsHandler(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/channels", nil))

	assert.JSONEq(t, `{
		"healthy": false,
		"channels": [{
			"name": "discord",
			"enabled": true,
			"circuit_breaker_open": true,
			"disabled_until": "2026-03-09T15:00:00Z"
		}]
	}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newMetricsHandler(stubHealth(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServeMetrics_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveMetrics(ctx, discardLogger(), addr, newMetricsHandler(stubHealth(nil))) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestServeMetrics_AddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = serveMetrics(context.Background(), discardLogger(), ln.Addr().String(), http.NotFoundHandler())
	assert.Error(t, err)
}
