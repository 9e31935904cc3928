// Package identity carries the acting user through domain operations.
package identity

import (
	"context"

	"pharmaerp/internal/core/id"
)

// Actor is the user on whose behalf an operation runs.
// Only actors confirmed by a Resolver are referenced in stored records.
type Actor struct {
	UserID   id.ID
	Username string
	verified bool
}

// Verified returns an actor whose user row is known to exist.
func Verified(userID id.ID, username string) *Actor {
	return &Actor{UserID: userID, Username: username, verified: true}
}

// Unverified returns an actor that must not be referenced by foreign keys.
func Unverified(userID id.ID, username string) *Actor {
	return &Actor{UserID: userID, Username: username}
}

// IsVerified reports whether the actor was confirmed at the boundary.
func (a *Actor) IsVerified() bool {
	return a != nil && a.verified
}

// Ref returns the user id to store in posted_by, cancelled_by and audit rows,
// or nil when the actor is missing or unverified.
func (a *Actor) Ref() *id.ID {
	if !a.IsVerified() || id.IsNil(a.UserID) {
		return nil
	}
	uid := a.UserID
	return &uid
}

// Name returns the username or "system".
func (a *Actor) Name() string {
	if a == nil || a.Username == "" {
		return "system"
	}
	return a.Username
}

// Resolver confirms that a user id refers to a real user.
type Resolver interface {
	Exists(ctx context.Context, userID id.ID) (bool, error)
}

// Resolve turns a raw user id into an Actor.
// Lookup failures and unknown users produce an unverified actor, never an error.
func Resolve(ctx context.Context, r Resolver, userID id.ID, username string) *Actor {
	if id.IsNil(userID) {
		return nil
	}
	if r == nil {
		return Unverified(userID, username)
	}
	ok, err := r.Exists(ctx, userID)
	if err != nil || !ok {
		return Unverified(userID, username)
	}
	return Verified(userID, username)
}
