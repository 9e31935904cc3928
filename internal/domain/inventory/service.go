package inventory

import (
	"context"
	"fmt"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/pkg/logger"
)

// StockReader answers stock-on-hand questions.
type StockReader interface {
	StockOnHand(ctx context.Context, locationID, batchID id.ID) (types.Quantity, error)
}

// LedgerWriter appends movements. It does not check sufficiency.
type LedgerWriter interface {
	WriteMovement(ctx context.Context, m Movement) error
}

// Ledger provides business operations for the stock ledger.
// Transactions are managed by the caller (posting engine, receipts, transfers).
type Ledger struct {
	repo Repository
}

// Compile-time checks.
var (
	_ StockReader  = (*Ledger)(nil)
	_ LedgerWriter = (*Ledger)(nil)
)

// NewLedger creates a new ledger service.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// StockOnHand returns the sum of movements for (location, batch); zero when none.
func (l *Ledger) StockOnHand(ctx context.Context, locationID, batchID id.ID) (types.Quantity, error) {
	qty, err := l.repo.SumQuantity(ctx, locationID, batchID)
	if err != nil {
		return types.Zero(), fmt.Errorf("stock on hand: %w", err)
	}
	return qty, nil
}

// WriteMovement appends one movement.
func (l *Ledger) WriteMovement(ctx context.Context, m Movement) error {
	return l.WriteMovements(ctx, []Movement{m})
}

// WriteMovements appends movements in one statement. Rows are stored as
// given; the posting services validate quantities and references first.
func (l *Ledger) WriteMovements(ctx context.Context, movements []Movement) error {
	if len(movements) == 0 {
		return nil
	}

	if err := l.repo.InsertMovements(ctx, movements); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	logger.Debug(ctx, "recorded stock movements",
		"count", len(movements),
		"ref_doc_id", movements[0].RefDocID,
		"reason", movements[0].Reason,
	)
	return nil
}

// LockBatches locks the batch rows for the rest of the caller's transaction.
// Ids are deduplicated and sorted so concurrent lockers acquire in the same order.
func (l *Ledger) LockBatches(ctx context.Context, batchIDs []id.ID) error {
	ordered := id.SortedUnique(batchIDs)
	if len(ordered) == 0 {
		return nil
	}
	if err := l.repo.LockBatches(ctx, ordered); err != nil {
		return fmt.Errorf("lock batches: %w", err)
	}
	return nil
}

// AvailableBatches returns ACTIVE batches with positive stock at the location.
func (l *Ledger) AvailableBatches(ctx context.Context, productID, locationID id.ID) ([]BatchStock, error) {
	stock, err := l.repo.ListBatchStock(ctx, productID, locationID)
	if err != nil {
		return nil, fmt.Errorf("list batch stock: %w", err)
	}
	return stock, nil
}

// OnHandByProduct returns the product total at a location.
func (l *Ledger) OnHandByProduct(ctx context.Context, productID, locationID id.ID) (types.Quantity, error) {
	qty, err := l.repo.SumByProduct(ctx, productID, locationID)
	if err != nil {
		return types.Zero(), fmt.Errorf("on hand by product: %w", err)
	}
	return qty, nil
}

// MovementsFor returns the movements written for a document.
func (l *Ledger) MovementsFor(ctx context.Context, refDocType string, refDocID id.ID) ([]Movement, error) {
	return l.repo.ListMovementsByRef(ctx, refDocType, refDocID)
}
