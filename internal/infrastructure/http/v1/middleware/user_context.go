package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"pharmaerp/internal/core/apperror"
	appctx "pharmaerp/internal/core/context"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/identity"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// UserContext puts the calling user on the request context.
//
// Authentication happens upstream; the gateway forwards the user id in
// X-User-ID. The id is checked against the users table once here, and only
// a confirmed user is later written to posted_by, cancelled_by and audit rows.
// An unknown id is accepted but stays unverified.
func UserContext(resolver identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderUserID)
		if raw == "" {
			c.Next()
			return
		}

		userID, err := id.Parse(raw)
		if err != nil {
			_ = c.Error(apperror.NewValidation("invalid user id").WithDetail("header", HeaderUserID))
			c.Abort()
			return
		}

		actor := identity.Resolve(c.Request.Context(), resolver, userID, c.GetHeader(HeaderUserName))
		if actor == nil {
			c.Next()
			return
		}
		ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{
			UserID:   actor.UserID.String(),
			Username: actor.Username,
			Verified: actor.IsVerified(),
		})
		c.Request = c.Request.WithContext(ctx)
		oteltrace.SpanFromContext(ctx).SetAttributes(
			attribute.String("enduser.id", actor.UserID.String()),
			attribute.Bool("enduser.verified", actor.IsVerified()),
		)
		c.Next()
	}
}

// Actor returns the acting user of the request, or nil for anonymous calls.
func Actor(c *gin.Context) *identity.Actor {
	user := appctx.GetUser(c.Request.Context())
	if user == nil {
		return nil
	}
	userID, err := id.Parse(user.UserID)
	if err != nil {
		return nil
	}
	if user.Verified {
		return identity.Verified(userID, user.Username)
	}
	return identity.Unverified(userID, user.Username)
}
