// Package alerts raises low-stock and near-expiry notifications after sales.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/sales"
	"pharmaerp/pkg/logger"
)

// Kind classifies a notification.
type Kind string

const (
	KindLowStock   Kind = "low_stock"
	KindNearExpiry Kind = "near_expiry"
)

// Notification is a message queued for delivery.
// DedupeKey makes repeated enqueues of the same alert a no-op.
type Notification struct {
	Kind      Kind
	Channel   string
	Recipient string
	Subject   string
	Message   string
	DedupeKey string
}

// Notifier queues a notification at most once per dedupe key.
// It reports whether the notification was newly queued.
type Notifier interface {
	EnqueueOnce(ctx context.Context, n Notification) (bool, error)
}

// StockLevels reports product totals at a location.
type StockLevels interface {
	OnHandByProduct(ctx context.Context, productID, locationID id.ID) (types.Quantity, error)
}

// Config holds alert thresholds.
type Config struct {
	// LowStockThreshold applies to products without a reorder level
	LowStockThreshold decimal.Decimal
	// NearExpiryDays is the window that triggers a near-expiry alert
	NearExpiryDays int
	Recipient      string
	Channel        string
}

// DefaultConfig returns the stock thresholds used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		LowStockThreshold: decimal.NewFromInt(50),
		NearExpiryDays:    90,
		Recipient:         "inventory@pharmacy.local",
		Channel:           "email",
	}
}

// Evaluator checks stock after a sale and enqueues alerts.
type Evaluator struct {
	levels   StockLevels
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

var _ sales.SaleObserver = (*Evaluator)(nil)

// NewEvaluator creates an evaluator. A nil notifier disables alerts.
func NewEvaluator(levels StockLevels, notifier Notifier, cfg Config) *Evaluator {
	return &Evaluator{levels: levels, notifier: notifier, cfg: cfg, now: time.Now}
}

// NotifySale runs after an invoice commits. Every failure is logged and dropped.
func (e *Evaluator) NotifySale(ctx context.Context, sale sales.PostedSale) {
	if e == nil || e.notifier == nil {
		return
	}
	for _, n := range e.Evaluate(ctx, sale) {
		e.enqueue(ctx, n)
	}
}

// Evaluate returns the alerts a sale should raise, one per product and per batch.
func (e *Evaluator) Evaluate(ctx context.Context, sale sales.PostedSale) []Notification {
	today := e.now().UTC()
	day := today.Format(time.DateOnly)

	var out []Notification
	seenProducts := make(map[id.ID]struct{})
	seenBatches := make(map[id.ID]struct{})

	for _, item := range sale.Items {
		if _, ok := seenProducts[item.ProductID]; !ok {
			seenProducts[item.ProductID] = struct{}{}
			if n, ok := e.lowStock(ctx, sale, item.ProductID, day); ok {
				out = append(out, n)
			}
		}

		if _, ok := seenBatches[item.BatchID]; ok {
			continue
		}
		seenBatches[item.BatchID] = struct{}{}

		batch, ok := sale.Batches[item.BatchID]
		if !ok {
			continue
		}
		daysLeft := batch.DaysToExpiry(today)
		if daysLeft < 0 || daysLeft > e.cfg.NearExpiryDays {
			continue
		}
		name := item.ProductID.String()
		if p, ok := sale.Products[item.ProductID]; ok {
			name = p.Name
		}
		out = append(out, e.notification(KindNearExpiry,
			fmt.Sprintf("Near expiry: %s batch %s", name, batch.BatchNo),
			fmt.Sprintf("Batch %s of %s expires on %s (%d days).",
				batch.BatchNo, name, batch.ExpiryDate.Format(time.DateOnly), daysLeft),
			fmt.Sprintf("%s:%s:%s:%s", KindNearExpiry, sale.LocationID, item.BatchID, day),
		))
	}
	return out
}

func (e *Evaluator) lowStock(ctx context.Context, sale sales.PostedSale, productID id.ID, day string) (Notification, bool) {
	product, ok := sale.Products[productID]
	if !ok {
		return Notification{}, false
	}

	onHand, err := e.levels.OnHandByProduct(ctx, productID, sale.LocationID)
	if err != nil {
		logger.Warn(ctx, "low stock check failed", "product_id", productID, "error", err)
		return Notification{}, false
	}

	threshold := product.ReorderLevel
	if !threshold.IsPositive() {
		threshold = e.cfg.LowStockThreshold
	}
	if onHand.GreaterThan(threshold) {
		return Notification{}, false
	}

	return e.notification(KindLowStock,
		fmt.Sprintf("Low stock: %s", product.Name),
		fmt.Sprintf("%s (%s) has %s units left at location %s; reorder level %s.",
			product.Name, product.Code, onHand, sale.LocationID, threshold),
		fmt.Sprintf("%s:%s:%s:%s", KindLowStock, sale.LocationID, productID, day),
	), true
}

func (e *Evaluator) notification(kind Kind, subject, message, key string) Notification {
	return Notification{
		Kind:      kind,
		Channel:   e.cfg.Channel,
		Recipient: e.cfg.Recipient,
		Subject:   subject,
		Message:   message,
		DedupeKey: key,
	}
}

func (e *Evaluator) enqueue(ctx context.Context, n Notification) {
	queued, err := e.notifier.EnqueueOnce(ctx, n)
	if err != nil {
		logger.Warn(ctx, "notification not queued", "kind", n.Kind, "dedupe_key", n.DedupeKey, "error", err)
		return
	}
	if queued {
		logger.Info(ctx, "notification queued", "kind", n.Kind, "dedupe_key", n.DedupeKey)
	}
}
