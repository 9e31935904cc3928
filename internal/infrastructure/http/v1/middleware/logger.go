package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"pharmaerp/pkg/logger"
)

// Logger middleware logs HTTP requests with timing and status.
// The request context carries log so domain code logging through
// logger.Info(ctx, ...) writes to the same sink with trace and user fields.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))

		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		entry := log.WithContext(c.Request.Context())
		if c.Writer.Status() >= 500 {
			entry.Errorw("http request", fields...)
			return
		}
		entry.Infow("http request", fields...)
	}
}
