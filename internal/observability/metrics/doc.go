// Package metrics records Prometheus metrics for the worker's operational
// HTTP endpoints (/metrics, /health, /health/ready, /health/channels).
//
// Domain metrics are declared next to the code they measure; this package
// only covers request count and latency.
//
// Example usage:
//
//	handler := metrics.Middleware(mux)
package metrics
