package memstore

import (
	"context"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/inventory"
)

// LedgerRepo implements inventory.Repository.
type LedgerRepo struct {
	s *Store
}

var _ inventory.Repository = (*LedgerRepo)(nil)

// Ledger returns the ledger repository.
func (s *Store) Ledger() *LedgerRepo {
	return &LedgerRepo{s: s}
}

func (r *LedgerRepo) InsertMovements(ctx context.Context, movements []inventory.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(FaultLedgerInsert); err != nil {
		return err
	}

	inserted := make(map[id.ID]struct{}, len(movements))
	for _, m := range movements {
		r.s.movements = append(r.s.movements, m)
		inserted[m.ID] = struct{}{}
	}
	r.s.onRollback(ctx, func() {
		kept := r.s.movements[:0]
		for _, m := range r.s.movements {
			if _, ok := inserted[m.ID]; !ok {
				kept = append(kept, m)
			}
		}
		r.s.movements = kept
	})
	return nil
}

func (r *LedgerRepo) SumQuantity(_ context.Context, locationID, batchID id.ID) (types.Quantity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.onHand(locationID, batchID), nil
}

func (r *LedgerRepo) SumByProduct(_ context.Context, productID, locationID id.ID) (types.Quantity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := types.Zero()
	for _, m := range r.s.movements {
		if m.LocationID != locationID {
			continue
		}
		if b, ok := r.s.batches[m.BatchID]; ok && b.ProductID == productID {
			total = total.Add(m.QtyChangeBase)
		}
	}
	return total, nil
}

// LockBatches blocks while another transaction holds any of the batches.
// Outside a transaction the lock would end immediately, so it is a no-op.
func (r *LedgerRepo) LockBatches(ctx context.Context, batchIDs []id.ID) error {
	st := txFrom(ctx)
	if st == nil {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, bid := range batchIDs {
		if _, ok := r.s.batches[bid]; !ok {
			continue
		}
		for {
			holder := r.s.batchTxn[bid]
			if holder == nil || holder == st {
				break
			}
			r.s.cond.Wait()
		}
		if r.s.batchTxn[bid] == nil {
			r.s.lockOrder = append(r.s.lockOrder, bid)
		}
		r.s.batchTxn[bid] = st
	}
	return nil
}

func (r *LedgerRepo) ListBatchStock(_ context.Context, productID, locationID id.ID) ([]inventory.BatchStock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []inventory.BatchStock
	for _, b := range r.s.batches {
		if b.ProductID != productID || b.Status != catalog.BatchActive {
			continue
		}
		qty := r.s.onHand(locationID, b.ID)
		if !qty.IsPositive() {
			continue
		}
		out = append(out, inventory.BatchStock{Batch: *b, Available: qty})
	}
	return out, nil
}

func (r *LedgerRepo) ListMovementsByRef(_ context.Context, refDocType string, refDocID id.ID) ([]inventory.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []inventory.Movement
	for _, m := range r.s.movements {
		if m.RefDocType == refDocType && m.RefDocID == refDocID {
			out = append(out, m)
		}
	}
	return out, nil
}

// onHand must be called with mu held.
func (s *Store) onHand(locationID, batchID id.ID) types.Quantity {
	total := types.Zero()
	for _, m := range s.movements {
		if m.LocationID == locationID && m.BatchID == batchID {
			total = total.Add(m.QtyChangeBase)
		}
	}
	return total
}
