// Package inventory provides the append-only stock ledger.
// Stock-on-hand is never stored; it is the sum of movements per (location, batch).
package inventory

import (
	"time"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/catalog"
)

// Reason explains why stock moved.
type Reason string

const (
	ReasonPurchase    Reason = "PURCHASE"
	ReasonSale        Reason = "SALE"
	ReasonAdjustment  Reason = "ADJUSTMENT"
	ReasonTransferOut Reason = "TRANSFER_OUT"
	ReasonTransferIn  Reason = "TRANSFER_IN"
)

// Document types referenced by movements.
const (
	RefSalesInvoice  = "SALES_INVOICE"
	RefGoodsReceipt  = "GRN"
	RefStockTransfer = "STOCK_TRANSFER"
)

// Movement is one immutable ledger row. QtyChangeBase is signed.
type Movement struct {
	ID            id.ID          `db:"id" json:"id"`
	LocationID    id.ID          `db:"location_id" json:"locationId"`
	BatchID       id.ID          `db:"batch_id" json:"batchId"`
	QtyChangeBase types.Quantity `db:"qty_change_base" json:"qtyChangeBase"`
	Reason        Reason         `db:"reason" json:"reason"`
	RefDocType    string         `db:"ref_doc_type" json:"refDocType"`
	RefDocID      id.ID          `db:"ref_doc_id" json:"refDocId"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// NewMovement builds a movement with a fresh id and timestamp.
func NewMovement(locationID, batchID id.ID, qty types.Quantity, reason Reason, refType string, refID id.ID) Movement {
	return Movement{
		ID:            id.New(),
		LocationID:    locationID,
		BatchID:       batchID,
		QtyChangeBase: qty,
		Reason:        reason,
		RefDocType:    refType,
		RefDocID:      refID,
		CreatedAt:     time.Now().UTC(),
	}
}

// BatchStock is a batch with its on-hand quantity at one location.
type BatchStock struct {
	Batch     catalog.BatchLot
	Available types.Quantity
}

// Allocation is a quantity taken from one batch.
type Allocation struct {
	BatchID    id.ID          `json:"batchId"`
	BatchNo    string         `json:"batchNo"`
	ExpiryDate time.Time      `json:"expiryDate"`
	Qty        types.Quantity `json:"qty"`
}
