package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trending-watch/internal/observability/metrics"
	"trending-watch/internal/observability/tracing"
	"trending-watch/internal/usecase/notify"
)

// HealthResponse represents a simple health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ChannelHealthResponse represents the health status of all notification channels.
type ChannelHealthResponse struct {
	Healthy  bool                         `json:"healthy"`
	Channels []notify.ChannelHealthStatus `json:"channels"`
}

// channelHealthSource is the part of notify.Service the handler needs.
type channelHealthSource interface {
	GetChannelHealth() []notify.ChannelHealthStatus
}

// newMetricsHandler builds the metrics server routes:
//   - GET /metrics - Prometheus metrics endpoint
//   - GET /health - Simple liveness probe (always returns 200 OK)
//   - GET /health/channels - Channel health with circuit breaker state
//
// Every route is traced and counted.
func newMetricsHandler(health channelHealthSource) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /health/channels", channelHealthHandler(health))
	return tracing.Middleware(metrics.Middleware(mux))
}

// serveMetrics serves handler on addr until ctx is cancelled, then shuts down
// within 5 seconds. A clean shutdown returns nil.
func serveMetrics(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("metrics server starting", slog.String("addr", ln.Addr().String()))
		errChan <- server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logger.Info("metrics server shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
			return err
		}
		logger.Info("metrics server stopped")
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// healthHandler always answers 200 {"status":"healthy"}.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"})
}

// channelHealthHandler answers 200 when every enabled channel's circuit
// breaker is closed and 503 otherwise.
func channelHealthHandler(health channelHealthSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := health.GetChannelHealth()
		if statuses == nil {
			statuses = []notify.ChannelHealthStatus{}
		}

		healthy := true
		for _, status := range statuses {
			if status.Enabled && status.CircuitBreakerOpen {
				healthy = false
			}
		}

		statusCode := http.StatusOK
		if !healthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(ChannelHealthResponse{
			Healthy:  healthy,
			Channels: statuses,
		})
	}
}
