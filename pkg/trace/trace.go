package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// Header is the HTTP header carrying the trace ID across services.
const Header = "X-Trace-ID"

type contextKey struct{}

// NewTraceID generates a random 128-bit trace ID.
func NewTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext returns the trace ID stored in ctx, or "" when absent.
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(contextKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext stores the trace ID in ctx.
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey{}, traceID)
}
