// Package numerator provides PostgreSQL implementation of document auto-numbering.
// This is the infrastructure layer - it implements core/numerator.Generator interface.
package numerator

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	corenumerator "pharmaerp/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// nextSQL creates the counter at 2 (number 1 is issued by the insert itself)
// or bumps it under the row lock, returning the number just issued.
const nextSQL = `
	INSERT INTO doc_counters (document_type, prefix, padding, next_number, updated_at)
	VALUES ($1, $2, $3, 2, NOW())
	ON CONFLICT (document_type) DO UPDATE
		SET next_number = doc_counters.next_number + 1, updated_at = NOW()
	RETURNING prefix, padding, next_number - 1`

// advanceSQL only ever raises the counter, so numbers already issued stay unique.
const advanceSQL = `
	INSERT INTO doc_counters (document_type, prefix, padding, next_number, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (document_type) DO UPDATE
		SET next_number = GREATEST(doc_counters.next_number, EXCLUDED.next_number), updated_at = NOW()
	RETURNING next_number`

// Service provides document numbering functionality using PostgreSQL.
// Every call is a single upsert on the pool, outside any business transaction,
// so issued numbers survive a rollback of the caller.
type Service struct {
	querier Querier
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a new numerator service.
func New(querier Querier) *Service {
	return &Service{querier: querier}
}

// NextDocNumber issues the next number for cfg.DocumentType.
// Concurrent callers for one type serialize on the counter row.
func (s *Service) NextDocNumber(ctx context.Context, cfg corenumerator.Config) (string, error) {
	if s == nil || s.querier == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	cfg = cfg.Normalize()
	if cfg.DocumentType == "" {
		return "", fmt.Errorf("document type is required")
	}

	var (
		storedPrefix  string
		storedPadding int
		num           int64
	)
	err := s.querier.QueryRow(ctx, nextSQL,
		cfg.DocumentType, cfg.InitialPrefix(), cfg.InitialPadding(),
	).Scan(&storedPrefix, &storedPadding, &num)
	if err != nil {
		return "", fmt.Errorf("next doc number %s: %w", cfg.DocumentType, err)
	}

	prefix, padding := cfg.Resolve(storedPrefix, storedPadding)
	return corenumerator.Format(prefix, padding, num), nil
}

// AdvanceNextNumber moves the counter forward so the next issued number is
// at least value, e.g. to continue a numbering series imported from a previous
// system. A counter already past value is left alone. Returns the effective next number.
func (s *Service) AdvanceNextNumber(ctx context.Context, documentType string, value int64) (int64, error) {
	cfg := corenumerator.ForType(documentType).Normalize()
	if cfg.DocumentType == "" {
		return 0, fmt.Errorf("document type is required")
	}
	if value < 1 {
		return 0, fmt.Errorf("next number must be positive, got %d", value)
	}

	var next int64
	err := s.querier.QueryRow(ctx, advanceSQL,
		cfg.DocumentType, cfg.InitialPrefix(), cfg.InitialPadding(), value,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("advance next number %s: %w", cfg.DocumentType, err)
	}
	return next, nil
}
