package memstore

import (
	"context"
	"time"

	"pharmaerp/internal/domain/alerts"
)

// OutboxRow is a queued notification.
type OutboxRow struct {
	Notification alerts.Notification
	CreatedAt    time.Time
}

// Outbox implements alerts.Notifier with dedupe on the notification key.
type Outbox struct{ s *Store }

var _ alerts.Notifier = (*Outbox)(nil)

// Outbox returns the notification queue.
func (s *Store) Outbox() *Outbox { return &Outbox{s: s} }

func (o *Outbox) EnqueueOnce(_ context.Context, n alerts.Notification) (bool, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if err := o.s.fault(FaultOutboxInsert); err != nil {
		return false, err
	}
	for _, row := range o.s.outbox {
		if row.Notification.DedupeKey == n.DedupeKey {
			return false, nil
		}
	}
	o.s.outbox = append(o.s.outbox, OutboxRow{Notification: n, CreatedAt: time.Now().UTC()})
	return true, nil
}

// Queued returns every queued notification in insertion order.
func (o *Outbox) Queued() []alerts.Notification {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	out := make([]alerts.Notification, 0, len(o.s.outbox))
	for _, row := range o.s.outbox {
		out = append(out, row.Notification)
	}
	return out
}
