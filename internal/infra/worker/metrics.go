package worker

import (
	"trending-watch/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the watcher process.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp
//   - worker_config_validation_errors_total{field}
//   - worker_config_fallbacks_total{field}
//   - worker_config_fallback_active
//
// Process metrics:
//   - worker_ready: 1 while a feed session is subscribed
//   - worker_status_reports_total: status report cron runs
//   - worker_status_report_last_timestamp: Unix time of the last report
//   - worker_known_tickers: tickers seen since start, as of the last report
//
// Metrics are registered on the default registry, so NewWorkerMetrics must be
// called once per process.
type WorkerMetrics struct {
	*config.ConfigMetrics

	Ready                     prometheus.Gauge
	StatusReportsTotal        prometheus.Counter
	StatusReportLastTimestamp prometheus.Gauge
	KnownTickers              prometheus.Gauge
}

// NewWorkerMetrics creates and registers the worker metrics.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		Ready: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_ready",
			Help: "1 while a feed session is subscribed, 0 otherwise",
		}),

		StatusReportsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_status_reports_total",
			Help: "Total number of periodic status reports",
		}),

		StatusReportLastTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_status_report_last_timestamp",
			Help: "Unix timestamp of the last status report",
		}),

		KnownTickers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_known_tickers",
			Help: "Number of distinct tickers seen since start, as of the last status report",
		}),
	}
}

// SetReady mirrors the readiness probe.
func (m *WorkerMetrics) SetReady(ready bool) {
	if ready {
		m.Ready.Set(1)
		return
	}
	m.Ready.Set(0)
}

// RecordStatusReport records one status report run.
func (m *WorkerMetrics) RecordStatusReport(knownTickers int) {
	m.StatusReportsTotal.Inc()
	m.StatusReportLastTimestamp.SetToCurrentTime()
	m.KnownTickers.Set(float64(knownTickers))
}
