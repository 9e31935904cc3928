package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/alerts"
	"pharmaerp/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

const (
	outboxTable = "notification_outbox"

	// DefaultMaxRetries is the number of failed deliveries before a message is given up
	DefaultMaxRetries = 5
)

// OutboxMessage is a notification_outbox row.
type OutboxMessage struct {
	ID          id.ID        `db:"id"`
	Kind        string       `db:"kind"`
	Channel     string       `db:"channel"`
	Recipient   string       `db:"recipient"`
	Subject     string       `db:"subject"`
	Message     string       `db:"message"`
	DedupeKey   string       `db:"dedupe_key"`
	Status      OutboxStatus `db:"status"`
	RetryCount  int          `db:"retry_count"`
	LastError   *string      `db:"last_error"`
	NextRetryAt *time.Time   `db:"next_retry_at"`
	CreatedAt   time.Time    `db:"created_at"`
	SentAt      *time.Time   `db:"sent_at"`
}

// OutboxPublisher writes notifications to the outbox table.
type OutboxPublisher struct {
	txManager *TxManager
}

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// buildInsert renders the idempotent insert for n.
func buildOutboxInsert(n alerts.Notification, now time.Time) (string, []any, error) {
	return sq.Insert(outboxTable).
		Columns("id", "kind", "channel", "recipient", "subject", "message", "dedupe_key", "status", "created_at").
		Values(id.New(), string(n.Kind), n.Channel, n.Recipient, n.Subject, n.Message, n.DedupeKey, OutboxStatusPending, now).
		Suffix("ON CONFLICT (dedupe_key) DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// Publish queues n unless a message with the same dedupe key exists.
// It reports whether a row was inserted.
func (p *OutboxPublisher) Publish(ctx context.Context, n alerts.Notification) (bool, error) {
	query, args, err := buildOutboxInsert(n, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	tag, err := p.txManager.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert outbox message: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// OutboxHandler delivers outbox messages.
type OutboxHandler interface {
	// Handle delivers a message and returns error if failed
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay reads and delivers pending notifications.
// Used by the background worker.
type OutboxRelay struct {
	txManager  *TxManager
	batchSize  int
	maxRetries int
	handler    OutboxHandler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, batchSize int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &OutboxRelay{
		txManager:  txManager,
		batchSize:  batchSize,
		maxRetries: DefaultMaxRetries,
		handler:    handler,
	}
}

func buildPendingQuery(batchSize int) (string, []any, error) {
	return sq.Select("id", "kind", "channel", "recipient", "subject", "message", "dedupe_key",
		"status", "retry_count", "last_error", "next_retry_at", "created_at", "sent_at").
		From(outboxTable).
		Where(sq.Eq{"status": OutboxStatusPending}).
		Where("(next_retry_at IS NULL OR next_retry_at <= NOW())").
		OrderBy("created_at").
		Limit(uint64(batchSize)).
		Suffix("FOR UPDATE SKIP LOCKED").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// ProcessBatch fetches and delivers pending messages.
// Rows stay locked until the batch commits, so parallel relays never pick the same message.
// Returns number of delivered messages.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	delivered := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		query, args, err := buildPendingQuery(r.batchSize)
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}

		var messages []*OutboxMessage
		if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &messages, query, args...); err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if err := r.processMessage(ctx, msg); err != nil {
				logger.Warn(ctx, "notification delivery failed",
					"id", msg.ID, "dedupe_key", msg.DedupeKey, "retry", msg.RetryCount+1, "error", err)
				continue
			}
			delivered++
		}
		return nil
	})
	return delivered, err
}

// processMessage handles a single outbox message.
func (r *OutboxRelay) processMessage(ctx context.Context, msg *OutboxMessage) error {
	q := r.txManager.GetQuerier(ctx)

	if err := r.handler.Handle(ctx, msg); err != nil {
		// Linear backoff, one minute per attempt
		nextRetry := time.Now().UTC().Add(time.Duration(msg.RetryCount+1) * time.Minute)
		status := OutboxStatusPending
		if msg.RetryCount+1 >= r.maxRetries {
			status = OutboxStatusFailed
		}

		_, updateErr := q.Exec(ctx, `
			UPDATE notification_outbox
			SET retry_count = retry_count + 1,
			    last_error = $1,
			    next_retry_at = $2,
			    status = $3
			WHERE id = $4
		`, err.Error(), nextRetry, status, msg.ID)
		if updateErr != nil {
			return fmt.Errorf("update failed message: %w", updateErr)
		}
		return err
	}

	_, err := q.Exec(ctx, `
		UPDATE notification_outbox
		SET status = $1, sent_at = $2
		WHERE id = $3
	`, OutboxStatusSent, time.Now().UTC(), msg.ID)
	return err
}

// MoveToDLQ moves messages that exhausted their retries to the dead letter table.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		WITH moved AS (
			DELETE FROM notification_outbox
			WHERE status = $1
			RETURNING *
		)
		INSERT INTO notification_outbox_dlq
		SELECT *, NOW() AS failed_at FROM moved
	`, OutboxStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}

	return result.RowsAffected(), nil
}
