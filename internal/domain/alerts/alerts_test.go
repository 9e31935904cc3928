package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaerp/internal/core/entity"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/sales"
)

type fixedLevels map[id.ID]types.Quantity

func (f fixedLevels) OnHandByProduct(_ context.Context, productID, _ id.ID) (types.Quantity, error) {
	q, ok := f[productID]
	if !ok {
		return types.Zero(), errors.New("unknown product")
	}
	return q, nil
}

type recordingNotifier struct {
	keys map[string]bool
	sent []Notification
}

func (r *recordingNotifier) EnqueueOnce(_ context.Context, n Notification) (bool, error) {
	if r.keys == nil {
		r.keys = make(map[string]bool)
	}
	if r.keys[n.DedupeKey] {
		return false, nil
	}
	r.keys[n.DedupeKey] = true
	r.sent = append(r.sent, n)
	return true, nil
}

func fixture(now time.Time, reorder string, expiryDays int) (sales.PostedSale, *catalog.Product) {
	p := &catalog.Product{BaseEntity: entity.NewBaseEntity(), Code: "AMX", Name: "Amoxicillin", ReorderLevel: types.MustDecimal(reorder)}
	b := catalog.NewBatchLot(p.ID, "B1", nil, now.AddDate(0, 0, expiryDays))
	return sales.PostedSale{
		InvoiceID:  id.New(),
		LocationID: id.New(),
		Items:      []sales.SoldItem{{ProductID: p.ID, BatchID: b.ID}, {ProductID: p.ID, BatchID: b.ID}},
		Products:   map[id.ID]*catalog.Product{p.ID: p},
		Batches:    map[id.ID]*catalog.BatchLot{b.ID: b},
	}, p
}

func TestEvaluator_NotifySale(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("low stock against reorder level", func(t *testing.T) {
		sale, p := fixture(now, "20", 400)
		n := &recordingNotifier{}
		ev := NewEvaluator(fixedLevels{p.ID: types.MustDecimal("20")}, n, DefaultConfig())
		ev.now = func() time.Time { return now }

		ev.NotifySale(ctx, sale)

		require.Len(t, n.sent, 1)
		assert.Equal(t, KindLowStock, n.sent[0].Kind)
		assert.True(t, strings.HasPrefix(n.sent[0].DedupeKey, "low_stock:"+sale.LocationID.String()))
		assert.True(t, strings.HasSuffix(n.sent[0].DedupeKey, "2026-05-01"))
	})

	t.Run("zero reorder level falls back to threshold", func(t *testing.T) {
		sale, p := fixture(now, "0", 400)
		n := &recordingNotifier{}
		ev := NewEvaluator(fixedLevels{p.ID: types.MustDecimal("51")}, n, DefaultConfig())
		ev.now = func() time.Time { return now }

		ev.NotifySale(ctx, sale)
		assert.Empty(t, n.sent)
	})

	t.Run("near expiry once per batch", func(t *testing.T) {
		sale, p := fixture(now, "5", 30)
		n := &recordingNotifier{}
		ev := NewEvaluator(fixedLevels{p.ID: types.MustDecimal("500")}, n, DefaultConfig())
		ev.now = func() time.Time { return now }

		ev.NotifySale(ctx, sale)
		ev.NotifySale(ctx, sale)

		require.Len(t, n.sent, 1)
		assert.Equal(t, KindNearExpiry, n.sent[0].Kind)
		assert.Contains(t, n.sent[0].Message, "30 days")
	})

	t.Run("stock lookup failure is swallowed", func(t *testing.T) {
		sale, _ := fixture(now, "5", 400)
		n := &recordingNotifier{}
		ev := NewEvaluator(fixedLevels{}, n, DefaultConfig())
		assert.NotPanics(t, func() { ev.NotifySale(ctx, sale) })
		assert.Empty(t, n.sent)
	})

	t.Run("nil notifier", func(t *testing.T) {
		sale, p := fixture(now, "100", 10)
		ev := NewEvaluator(fixedLevels{p.ID: types.Zero()}, nil, DefaultConfig())
		assert.NotPanics(t, func() { ev.NotifySale(ctx, sale) })
	})
}
