package notify

import (
	"context"
	"fmt"

	"pharmaerp/internal/infrastructure/storage/postgres"
	"pharmaerp/pkg/logger"
)

// LogSender delivers outbox messages by writing them to the application log.
// It stands in for mail or SMS gateways, which are configured per deployment.
type LogSender struct {
	log *logger.Logger
}

var _ postgres.OutboxHandler = (*LogSender)(nil)

// NewLogSender creates a sender that logs through log.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log.WithComponent("notify")}
}

// Handle logs the message. Messages without a recipient are rejected so they get retried after a config fix.
func (s *LogSender) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	if msg.Recipient == "" {
		return fmt.Errorf("notification %s has no recipient", msg.ID)
	}
	s.log.WithContext(ctx).Infow("notification delivered",
		"id", msg.ID,
		"kind", msg.Kind,
		"channel", msg.Channel,
		"recipient", msg.Recipient,
		"subject", msg.Subject,
	)
	return nil
}
