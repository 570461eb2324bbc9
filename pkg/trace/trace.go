package trace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// GenerateTraceID returns a new request id.
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext returns the request id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext stores traceID in ctx.
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// FromHeader returns the incoming id, generating one when the header is empty.
func FromHeader(headerValue string) string {
	if headerValue != "" {
		return headerValue
	}
	return GenerateTraceID()
}

// HeaderName is the HTTP header carrying the request id.
func HeaderName() string {
	return "X-Trace-ID"
}
