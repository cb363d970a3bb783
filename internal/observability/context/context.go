package context

import (
	stdcontext "context"
)

type requestIDKey struct{}

// WithRequestID stores the inbound request id on the context.
func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	if requestID == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id or an empty string.
func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
