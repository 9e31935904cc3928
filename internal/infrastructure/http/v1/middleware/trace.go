package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	appctx "pharmaerp/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace middleware adds request tracing context.
// Incoming ids are kept so a caller can correlate retries of the same request.
// When Tracing runs first, the OpenTelemetry span ids win so logs and spans match.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(HeaderTraceID)
		spanID := ""
		span := oteltrace.SpanFromContext(c.Request.Context())
		if sc := span.SpanContext(); sc.IsValid() {
			traceID = sc.TraceID().String()
			spanID = sc.SpanID().String()
		}

		trace := appctx.NewTraceContext(traceID, spanID, c.GetHeader(HeaderRequestID))
		traceID, requestID := trace.TraceID, trace.RequestID
		span.SetAttributes(attribute.String("http.request_id", requestID))
		c.Request = c.Request.WithContext(appctx.WithTrace(c.Request.Context(), trace))

		c.Set("trace_id", traceID)
		c.Set("request_id", requestID)

		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}
