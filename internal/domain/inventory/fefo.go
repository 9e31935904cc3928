package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/catalog"
)

// AllocateFEFO picks batches First-Expired-First-Out until required is covered.
//
// Only ACTIVE batches with positive availability that are not expired on asOf
// are considered. Ties on expiry are broken by batch number, then id.
// The sum of the returned allocations equals required.
func AllocateFEFO(productID id.ID, candidates []BatchStock, required types.Quantity, asOf time.Time) ([]Allocation, error) {
	if !required.IsPositive() {
		return nil, apperror.NewValidation("requested quantity must be positive").
			WithDetail("product_id", productID.String())
	}

	eligible := make([]BatchStock, 0, len(candidates))
	total := types.Zero()
	for _, c := range candidates {
		if c.Batch.Status != catalog.BatchActive || !c.Available.IsPositive() || c.Batch.IsExpired(asOf) {
			continue
		}
		eligible = append(eligible, c)
		total = total.Add(c.Available)
	}

	if total.LessThan(required) {
		return nil, apperror.NewInsufficientStock(productID.String(), "", total, required)
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i].Batch, eligible[j].Batch
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		if a.BatchNo != b.BatchNo {
			return a.BatchNo < b.BatchNo
		}
		return a.ID.String() < b.ID.String()
	})

	remaining := required
	allocations := make([]Allocation, 0, len(eligible))
	for _, c := range eligible {
		if !remaining.IsPositive() {
			break
		}
		take := types.Min(c.Available, remaining)
		allocations = append(allocations, Allocation{
			BatchID:    c.Batch.ID,
			BatchNo:    c.Batch.BatchNo,
			ExpiryDate: c.Batch.ExpiryDate,
			Qty:        take,
		})
		remaining = remaining.Sub(take)
	}

	return allocations, nil
}

// Allocator runs FEFO against live ledger stock.
type Allocator struct {
	ledger *Ledger
	now    func() time.Time
}

// NewAllocator creates an allocator over the ledger.
func NewAllocator(ledger *Ledger) *Allocator {
	return &Allocator{ledger: ledger, now: time.Now}
}

// AllocateForProduct locks the product's candidate batches and allocates from them.
// It must run inside the transaction that deducts the allocated stock.
func (a *Allocator) AllocateForProduct(ctx context.Context, productID, locationID id.ID, required types.Quantity) ([]Allocation, error) {
	candidates, err := a.ledger.AvailableBatches(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}

	batchIDs := make([]id.ID, 0, len(candidates))
	for _, c := range candidates {
		batchIDs = append(batchIDs, c.Batch.ID)
	}
	if err := a.ledger.LockBatches(ctx, batchIDs); err != nil {
		return nil, err
	}

	// Re-read under the locks so concurrent sales are reflected.
	if len(batchIDs) > 0 {
		candidates, err = a.ledger.AvailableBatches(ctx, productID, locationID)
		if err != nil {
			return nil, err
		}
	}

	allocations, err := AllocateFEFO(productID, candidates, required, a.now())
	if err != nil {
		return nil, fmt.Errorf("allocate product %s: %w", productID, err)
	}
	return allocations, nil
}
