// Package notify queues alert notifications and delivers them from the outbox.
package notify

import (
	"context"
	"fmt"
	"time"

	"pharmaerp/internal/domain/alerts"
	"pharmaerp/pkg/logger"
)

// Guard claims a dedupe key for a limited time.
type Guard interface {
	// Claim returns true if the key was not claimed yet
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops a claim so the key can be queued again
	Release(ctx context.Context, key string) error
}

// Publisher writes a notification to durable storage at most once per dedupe key.
type Publisher interface {
	Publish(ctx context.Context, n alerts.Notification) (bool, error)
}

// Queue implements alerts.Notifier.
// The guard is a fast path; the outbox unique constraint is the source of truth.
type Queue struct {
	guard     Guard
	publisher Publisher
	ttl       time.Duration
}

var _ alerts.Notifier = (*Queue)(nil)

// NewQueue creates a queue. guard may be nil.
func NewQueue(guard Guard, publisher Publisher, ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Queue{guard: guard, publisher: publisher, ttl: ttl}
}

// EnqueueOnce queues n unless its dedupe key was seen before.
func (q *Queue) EnqueueOnce(ctx context.Context, n alerts.Notification) (bool, error) {
	if n.DedupeKey == "" {
		return false, fmt.Errorf("notification %s has no dedupe key", n.Kind)
	}

	claimed := false
	if q.guard != nil {
		ok, err := q.guard.Claim(ctx, n.DedupeKey, q.ttl)
		switch {
		case err != nil:
			logger.Warn(ctx, "dedupe guard unavailable, relying on outbox constraint",
				"dedupe_key", n.DedupeKey, "error", err)
		case !ok:
			return false, nil
		default:
			claimed = true
		}
	}

	inserted, err := q.publisher.Publish(ctx, n)
	if err != nil {
		if claimed {
			if relErr := q.guard.Release(ctx, n.DedupeKey); relErr != nil {
				logger.Warn(ctx, "release dedupe key failed", "dedupe_key", n.DedupeKey, "error", relErr)
			}
		}
		return false, fmt.Errorf("publish notification: %w", err)
	}
	return inserted, nil
}
