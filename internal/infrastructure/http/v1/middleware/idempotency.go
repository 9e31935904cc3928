package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmaerp/internal/core/apperror"
	appctx "pharmaerp/internal/core/context"
	"pharmaerp/internal/infrastructure/storage/postgres"
	"pharmaerp/pkg/logger"
)

const (
	HeaderIdempotencyKey     = "X-Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"
)

const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

// Gin context keys shared with handlers and ErrorHandler.
const (
	ContextIdempotencyKey   = "idempotency_key"
	ContextIdempotencyStore = "idempotency_store"
)

// IdempotencyStore records request keys and their final responses.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
}

var _ IdempotencyStore = (*postgres.IdempotencyStore)(nil)

// Idempotency middleware replays the stored response of a repeated POST.
// A retried "post invoice" or "add payment" therefore never deducts stock
// or books money twice.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch &&
			c.Request.Method != http.MethodDelete {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		userID := appctx.GetUserID(c.Request.Context())

		var body []byte
		if c.Request.Body != nil {
			limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
			body, _ = io.ReadAll(limited)
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		// The path is part of the hash: the same key on another invoice is a different request.
		hash := sha256.New()
		hash.Write([]byte(c.Request.URL.Path))
		hash.Write(body)
		requestHash := hex.EncodeToString(hash.Sum(nil))

		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.AcquireKey(c.Request.Context(), key, userID, operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
			} else {
				_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			}
			c.Abort()
			return
		}

		if replay != nil {
			c.Header(HeaderIdempotentReplayed, "true")
			if replay.StatusCode == http.StatusNoContent {
				c.Status(http.StatusNoContent)
			} else {
				c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			}
			c.Abort()
			return
		}

		c.Set(ContextIdempotencyKey, key)
		c.Set(ContextIdempotencyStore, store)

		c.Next()
	}
}

// idempotencyFrom returns the key and store registered for this request.
func idempotencyFrom(c *gin.Context) (string, IdempotencyStore, bool) {
	key := c.GetString(ContextIdempotencyKey)
	if key == "" {
		return "", nil, false
	}
	v, _ := c.Get(ContextIdempotencyStore)
	store, ok := v.(IdempotencyStore)
	if !ok || store == nil {
		return "", nil, false
	}
	return key, store, true
}

// CompleteIdempotency stores a successful response for replay.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	if err := store.CompleteKey(c.Request.Context(), key, statusCode, contentType, response); err != nil {
		logger.Warn(c.Request.Context(), "idempotency completion failed", "key", key, "error", err)
	}
}
