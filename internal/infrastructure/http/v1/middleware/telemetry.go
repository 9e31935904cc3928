package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RequestRecorder receives one observation per finished request.
type RequestRecorder interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// unmatchedRoute labels 404s so unknown paths cannot blow up metric cardinality.
const unmatchedRoute = "unmatched"

// Tracing starts a server span per request using the global tracer provider.
// Probes are not traced.
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !strings.HasPrefix(r.URL.Path, "/health")
		}),
	)
}

// Metrics records status and latency keyed by the route template.
func Metrics(rec RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		rec.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
