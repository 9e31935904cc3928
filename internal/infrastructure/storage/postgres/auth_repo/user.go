// Package auth_repo provides PostgreSQL lookups of application users.
package auth_repo

import (
	"context"
	"fmt"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/identity"
	"pharmaerp/internal/infrastructure/storage/postgres"
)

// UserRepo confirms actors against the users table.
type UserRepo struct {
	txManager *postgres.TxManager
}

var _ identity.Resolver = (*UserRepo)(nil)

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

// Exists reports whether an active user with userID exists.
func (r *UserRepo) Exists(ctx context.Context, userID id.ID) (bool, error) {
	var exists bool
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND is_active)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query user: %w", err)
	}
	return exists, nil
}
