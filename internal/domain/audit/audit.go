// Package audit records who changed which record and how.
package audit

import (
	"context"
	"time"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/identity"
	"pharmaerp/pkg/logger"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate   Action = "CREATE"
	ActionPost     Action = "POST"
	ActionCancel   Action = "CANCEL"
	ActionDelete   Action = "DELETE"
	ActionPayment  Action = "PAYMENT"
	ActionReceive  Action = "RECEIVE"
	ActionTransfer Action = "TRANSFER"
)

// Entry is what callers hand to the recorder.
type Entry struct {
	Actor    *identity.Actor
	Table    string
	RecordID id.ID
	Action   Action
	Before   map[string]any
	After    map[string]any
}

// Log is a stored audit row.
type Log struct {
	ID        id.ID          `db:"id" json:"id"`
	ActorID   *id.ID         `db:"actor_id" json:"actorId,omitempty"`
	Action    Action         `db:"action" json:"action"`
	TableName string         `db:"table_name" json:"tableName"`
	RecordID  id.ID          `db:"record_id" json:"recordId"`
	Before    map[string]any `db:"-" json:"before,omitempty"`
	After     map[string]any `db:"-" json:"after,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// Store persists audit rows.
type Store interface {
	Insert(ctx context.Context, log Log) error
	History(ctx context.Context, table string, recordID id.ID, limit int) ([]Log, error)
}

// Recorder appends audit rows on a best-effort basis.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a recorder. A nil store turns recording into a no-op.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record appends one audit row. It never fails the caller:
// storage errors are logged and dropped.
// Only verified actors are referenced; everyone else is stored as NULL.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.store == nil {
		return
	}

	log := Log{
		ID:        id.New(),
		ActorID:   e.Actor.Ref(),
		Action:    e.Action,
		TableName: e.Table,
		RecordID:  e.RecordID,
		Before:    e.Before,
		After:     e.After,
		CreatedAt: r.now().UTC(),
	}

	if err := r.store.Insert(ctx, log); err != nil {
		logger.Warn(ctx, "audit record dropped",
			"table", e.Table,
			"record_id", e.RecordID,
			"action", e.Action,
			"actor", e.Actor.Name(),
			"error", err,
		)
	}
}

// History returns the latest audit rows for a record, newest first.
func (r *Recorder) History(ctx context.Context, table string, recordID id.ID, limit int) ([]Log, error) {
	if r == nil || r.store == nil {
		return []Log{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return r.store.History(ctx, table, recordID, limit)
}
