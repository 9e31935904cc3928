package memstore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pharmaerp/internal/core/entity"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/inventory"
)

// NewProduct returns a valid product sold in whole tablets, 10 per pack.
func NewProduct(code string, schedule catalog.Schedule, taxRate string) *catalog.Product {
	return &catalog.Product{
		BaseEntity:   entity.NewBaseEntity(),
		Code:         code,
		Name:         fmt.Sprintf("Product %s", code),
		Schedule:     schedule,
		UnitsPerPack: decimal.NewFromInt(10),
		BaseUnitStep: decimal.NewFromInt(1),
		TaxRate:      decimal.RequireFromString(taxRate),
	}
}

// AddProduct stores p.
func (s *Store) AddProduct(p *catalog.Product) *catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.products[p.ID] = &c
	return p
}

// AddBatch stores an ACTIVE batch of productID expiring on expiry.
func (s *Store) AddBatch(productID id.ID, batchNo string, expiry time.Time) *catalog.BatchLot {
	b := catalog.NewBatchLot(productID, batchNo, nil, expiry)
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *b
	s.batches[b.ID] = &c
	return b
}

// Receive books qty of a batch into a location as a PURCHASE movement.
func (s *Store) Receive(locationID, batchID id.ID, qty int64) {
	m := inventory.NewMovement(locationID, batchID, decimal.NewFromInt(qty),
		inventory.ReasonPurchase, inventory.RefGoodsReceipt, id.New())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movements = append(s.movements, m)
}

// OnHand returns the ledger sum for a batch at a location.
func (s *Store) OnHand(locationID, batchID id.ID) types.Quantity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onHand(locationID, batchID)
}

// Movements returns the ledger rows that reference a document.
func (s *Store) Movements(refID id.ID) []inventory.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.Movement
	for _, m := range s.movements {
		if m.RefDocID == refID {
			out = append(out, m)
		}
	}
	return out
}
