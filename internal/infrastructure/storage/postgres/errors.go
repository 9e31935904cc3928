package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pharmaerp/internal/core/apperror"
)

// SQLSTATE codes translated into domain errors.
const (
	codeUniqueViolation   = "23505"
	codeLockNotAvailable  = "55P03"
	codeDeadlockDetected  = "40P01"
	codeSerializationFail = "40001"
)

// MapError translates driver errors into AppErrors for entity.
// Errors that need no translation are returned unchanged.
func MapError(err error, entity string, key any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(entity, key)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFail:
		return apperror.NewConcurrentModification(entity, key).WithCause(err)
	case codeUniqueViolation:
		return apperror.NewDuplicate(entity, pgErr.ConstraintName, pgErr.Detail).WithCause(err)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
