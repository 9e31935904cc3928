package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext correlates a request's log lines with its span and with
// retries that carry the same request id.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// NewTraceContext keeps the given ids and generates any that are empty.
func NewTraceContext(traceID, spanID, requestID string) *TraceContext {
	if traceID == "" {
		traceID = uuid.New().String()
	}
	if spanID == "" {
		spanID = uuid.New().String()[:16]
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return &TraceContext{TraceID: traceID, SpanID: spanID, RequestID: requestID}
}

// WithTrace stores trace on ctx.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns the TraceContext on ctx, or nil.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}
