// Package observability groups the watcher's logging, tracing, and HTTP
// metrics helpers.
//
// Subpackages:
//   - logging: slog logger construction and context propagation
//   - tracing: OpenTelemetry tracer access and HTTP middleware
//   - metrics: request metrics for the operational endpoints
//
// Domain metrics are declared next to the code they measure
// (usecase/watch, usecase/notify, infra/worker, pkg/config,
// resilience/circuitbreaker).
package observability
