package appcontext

import (
	"context"

	"github.com/google/uuid"
)

type traceIDKey struct{}

// WithTraceID stores a correlation id in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceID returns the correlation id or empty string.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey{}).(string); ok {
		return v
	}
	return ""
}

// EnsureTraceID returns the context's trace id, generating one if absent.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if id := TraceID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithTraceID(ctx, id), id
}
