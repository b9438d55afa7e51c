package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used throughout the watcher.
const InstrumentationName = "trending-watch"

// GetTracer returns the watcher's tracer from the global provider.
// It is looked up on every call so a provider installed after package init
// is honored.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// TracerFrom returns the watcher's tracer from tp, or from the global provider
// when tp is nil.
func TracerFrom(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		return GetTracer()
	}
	return tp.Tracer(InstrumentationName)
}

// EndSpan records err on span (if any) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SetAttributes adds attributes to the span active in ctx, if any.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
