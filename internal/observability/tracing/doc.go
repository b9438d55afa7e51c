// Package tracing provides OpenTelemetry tracing helpers.
//
// Spans are created around the OAuth token exchange and each feed session.
// No exporter is installed by default, so spans are no-ops unless the process
// registers a TracerProvider with otel.SetTracerProvider.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "oauth.acquire")
//	defer func() { tracing.EndSpan(span, err) }()
//
// Middleware wraps the worker's metrics and health endpoints.
package tracing
