package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows browser clients from origins to call the API.
// Idempotency and identity headers must be listed or preflight rejects them.
func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			HeaderRequestID, HeaderTraceID,
			HeaderIdempotencyKey, HeaderUserID, HeaderUserName,
		},
		ExposeHeaders: []string{HeaderRequestID, HeaderTraceID, HeaderIdempotentReplayed},
		MaxAge:        12 * time.Hour,
	})
}
