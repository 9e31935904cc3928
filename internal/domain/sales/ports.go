package sales

import (
	"context"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/audit"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/inventory"
)

// Inventory is the ledger as seen by the posting engine.
type Inventory interface {
	inventory.StockReader
	inventory.LedgerWriter
	LockBatches(ctx context.Context, batchIDs []id.ID) error
	MovementsFor(ctx context.Context, refDocType string, refDocID id.ID) ([]inventory.Movement, error)
}

// BatchAllocator expands a product quantity into batch allocations.
type BatchAllocator interface {
	AllocateForProduct(ctx context.Context, productID, locationID id.ID, required types.Quantity) ([]inventory.Allocation, error)
}

// Catalog resolves products and batches, failing with NotFound for missing ids.
type Catalog interface {
	Products(ctx context.Context, productIDs []id.ID) (map[id.ID]*catalog.Product, error)
	Batches(ctx context.Context, batchIDs []id.ID) (map[id.ID]*catalog.BatchLot, error)
}

// ComplianceHooks enforce regulatory rules around posting.
type ComplianceHooks interface {
	// EnsurePrescription fails with ComplianceViolation when a controlled line lacks a prescription
	EnsurePrescription(ctx context.Context, inv *Invoice, products map[id.ID]*catalog.Product) error

	// CreateEntries writes register rows for posted lines
	CreateEntries(ctx context.Context, inv *Invoice, products map[id.ID]*catalog.Product) error
}

// SoldItem identifies stock touched by a posted invoice.
type SoldItem struct {
	ProductID id.ID
	BatchID   id.ID
}

// PostedSale describes a committed posting for post-commit observers.
type PostedSale struct {
	InvoiceID  id.ID
	InvoiceNo  string
	LocationID id.ID
	Items      []SoldItem
	Products   map[id.ID]*catalog.Product
	Batches    map[id.ID]*catalog.BatchLot
}

// SaleObserver is notified after a posting commits. It must not fail the sale.
type SaleObserver interface {
	NotifySale(ctx context.Context, sale PostedSale)
}

// AuditRecorder appends audit rows without failing the caller.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry)
	History(ctx context.Context, table string, recordID id.ID, limit int) ([]audit.Log, error)
}

// Observers fans a posted sale out to every non-nil observer in order.
type Observers []SaleObserver

// NotifySale implements SaleObserver.
func (o Observers) NotifySale(ctx context.Context, sale PostedSale) {
	for _, obs := range o {
		if obs != nil {
			obs.NotifySale(ctx, sale)
		}
	}
}
