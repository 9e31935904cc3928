package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaerp/internal/core/apperror"
)

// IdempotencyStatus represents the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

const (
	idempotencyTable = "idempotency_keys"

	defaultIdempotencyTTL = 24 * time.Hour

	// DefaultIdempotencyStaleAfter is how long a pending key may go untouched
	// before another request may take it over.
	DefaultIdempotencyStaleAfter = time.Minute
)

// IdempotencyReplay is the cached HTTP response for replay.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// idempotencyRow is what the acquire upsert returns. Inserted is true only
// for the request whose INSERT created the row.
type idempotencyRow struct {
	UserID      string            `db:"user_id"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
	StatusCode  int               `db:"response_status"`
	ContentType string            `db:"response_content_type"`
	UpdatedAt   time.Time         `db:"updated_at"`
	Inserted    bool              `db:"inserted"`
}

type acquireOutcome int

const (
	outcomeAcquired acquireOutcome = iota
	outcomeReplay
	outcomeReclaim
	outcomeBusy
)

// outcome decides what a request carrying the same key gets.
// A key reused by another user, route or body is rejected before its
// stored response could leak.
func (r idempotencyRow) outcome(userID, operation, requestHash string, now time.Time, staleAfter time.Duration) (acquireOutcome, error) {
	if r.Inserted {
		return outcomeAcquired, nil
	}
	if r.UserID != userID || r.Operation != operation || r.RequestHash != requestHash {
		return 0, fmt.Errorf("stored %q, got %q: %w", r.Operation, operation, errIdempotencyMismatch)
	}
	switch r.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return outcomeReplay, nil
	case IdempotencyStatusPending:
		if now.Sub(r.UpdatedAt) > staleAfter {
			return outcomeReclaim, nil
		}
		return outcomeBusy, nil
	default:
		return 0, fmt.Errorf("unknown idempotency status %q", r.Status)
	}
}

func (r idempotencyRow) replay() *IdempotencyReplay {
	replay := &IdempotencyReplay{
		StatusCode:  r.StatusCode,
		ContentType: r.ContentType,
		Body:        r.Response,
	}
	if replay.StatusCode == 0 {
		replay.StatusCode = http.StatusOK
	}
	if replay.ContentType == "" {
		replay.ContentType = "application/json"
	}
	return replay
}

var errIdempotencyMismatch = errors.New("idempotency key reused")

// IdempotencyStore keeps request keys in idempotency_keys so a retried
// mutation gets the first response instead of running again.
type IdempotencyStore struct {
	txManager  *TxManager
	ttl        time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

// NewIdempotencyStore creates a store whose keys live for ttl (24h when zero).
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{
		txManager:  txManager,
		ttl:        ttl,
		staleAfter: DefaultIdempotencyStaleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func buildAcquireKey(key, userID, operation, requestHash string, now, expiresAt time.Time) (string, []any, error) {
	return sq.Insert(idempotencyTable).
		Columns("idempotency_key", "user_id", "operation", "status", "request_hash", "created_at", "updated_at", "expires_at").
		Values(key, userID, operation, IdempotencyStatusPending, requestHash, now, now, expiresAt).
		Suffix(`ON CONFLICT (idempotency_key) DO UPDATE
			SET expires_at = GREATEST(` + idempotencyTable + `.expires_at, EXCLUDED.expires_at)
			RETURNING user_id, operation, status, request_hash, response, response_status,
				response_content_type, updated_at, (xmax = 0) AS inserted`).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// buildReclaimKey takes over a pending key only if nobody touched it since staleBefore,
// so two retries of a crashed request cannot both win.
func buildReclaimKey(key string, now, staleBefore time.Time) (string, []any, error) {
	return sq.Update(idempotencyTable).
		Set("updated_at", now).
		Where(sq.Eq{"idempotency_key": key, "status": IdempotencyStatusPending}).
		Where(sq.Lt{"updated_at": staleBefore}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func buildFinishKey(key string, status IdempotencyStatus, statusCode int, contentType string, body []byte, now time.Time) (string, []any, error) {
	return sq.Update(idempotencyTable).
		Set("status", status).
		Set("response", body).
		Set("response_status", statusCode).
		Set("response_content_type", contentType).
		Set("updated_at", now).
		Where(sq.Eq{"idempotency_key": key}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// AcquireKey claims key for this request. It returns:
//   - (nil, nil) when the caller owns the key and should run the handler
//   - (replay, nil) when a finished response is stored
//   - IdempotencyConflict while another request holds the key
//   - IdempotencyMismatch when the key belongs to a different request
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now()
	query, args, err := buildAcquireKey(key, userID, operation, requestHash, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("build acquire: %w", err)
	}

	var row idempotencyRow
	if err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), &row, query, args...); err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	outcome, err := row.outcome(userID, operation, requestHash, now, s.staleAfter)
	if err != nil {
		return nil, apperror.NewIdempotencyMismatch(key).WithCause(err)
	}

	switch outcome {
	case outcomeReplay:
		return row.replay(), nil
	case outcomeBusy:
		return nil, apperror.NewIdempotencyConflict(key)
	case outcomeReclaim:
		return nil, s.reclaim(ctx, key, now)
	default:
		return nil, nil
	}
}

func (s *IdempotencyStore) reclaim(ctx context.Context, key string, now time.Time) error {
	query, args, err := buildReclaimKey(key, now, now.Add(-s.staleAfter))
	if err != nil {
		return fmt.Errorf("build reclaim: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reclaim stale key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewIdempotencyConflict(key)
	}
	return nil
}

// CompleteKey stores a successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := marshalReplayBody(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return s.finish(ctx, key, IdempotencyStatusSuccess, statusCode, contentType, body)
}

// FailKey stores an error response for replay. A body that cannot be
// marshalled is replaced with a minimal error so the key still finishes.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := marshalReplayBody(response)
	if err != nil {
		body, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return s.finish(ctx, key, IdempotencyStatusFailed, statusCode, contentType, body)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status IdempotencyStatus, statusCode int, contentType string, body []byte) error {
	query, args, err := buildFinishKey(key, status, statusCode, contentType, body, s.now())
	if err != nil {
		return fmt.Errorf("build finish: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("finish idempotency key %s: %w", status, err)
	}
	return nil
}

func marshalReplayBody(response any) ([]byte, error) {
	if response == nil {
		return nil, nil
	}
	return json.Marshal(response)
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	query, args, err := sq.Delete(idempotencyTable).
		Where(sq.Lt{"expires_at": s.now()}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
