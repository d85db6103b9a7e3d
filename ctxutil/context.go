package ctxutil

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDKey is the log field and gin key that carries the trace id
const TraceIDKey = "trace_id"

type traceIDKey struct{}

// GetTraceID returns the trace id stored in ctx. Without one it falls back
// to the trace id of the active span, if any.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey{}).(string); ok && id != "" {
		return id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// SetTraceID stores a trace id in ctx
func SetTraceID(ctx context.Context, traceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// EnsureTraceID ensures that a trace ID exists in the context.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if traceID := GetTraceID(ctx); traceID != "" {
		return SetTraceID(ctx, traceID), traceID
	}
	traceID := uuid.NewString()
	return SetTraceID(ctx, traceID), traceID
}
