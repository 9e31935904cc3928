// Package receipt books incoming goods into stock.
package receipt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/identity"
	"pharmaerp/internal/core/numerator"
	"pharmaerp/internal/core/tx"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/audit"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/inventory"
	"pharmaerp/pkg/logger"
)

// TableGoodsReceipts is the audit table name of receipts.
const TableGoodsReceipts = "goods_receipts"

// Unit of a received quantity.
const (
	UnitBase = "BASE"
	UnitPack = "PACK"
)

// Receipt is the input for booking received goods.
type Receipt struct {
	LocationID   id.ID
	SupplierName string
	Lines        []Line
}

// Line is one received batch.
type Line struct {
	ProductID  id.ID
	BatchNo    string
	MfgDate    *time.Time
	ExpiryDate time.Time
	Unit       string
	Qty        types.Quantity
}

// GoodsReceipt is a stored receipt document.
type GoodsReceipt struct {
	ID           id.ID         `db:"id" json:"id"`
	ReceiptNo    string        `db:"receipt_no" json:"receiptNo"`
	LocationID   id.ID         `db:"location_id" json:"locationId"`
	SupplierName string        `db:"supplier_name" json:"supplierName"`
	ReceivedBy   *id.ID        `db:"received_by" json:"receivedBy,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	Lines        []ReceiptLine `db:"-" json:"lines"`
}

// ReceiptLine is a stored receipt line in base units.
type ReceiptLine struct {
	ID        id.ID          `db:"id" json:"id"`
	ReceiptID id.ID          `db:"receipt_id" json:"receiptId"`
	LineNo    int            `db:"line_no" json:"lineNo"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	BatchID   id.ID          `db:"batch_id" json:"batchId"`
	QtyBase   types.Quantity `db:"qty_base" json:"qtyBase"`
}

// Repository persists receipt documents.
type Repository interface {
	Create(ctx context.Context, grn *GoodsReceipt) error
}

// Catalog resolves products and registers batches.
type Catalog interface {
	Products(ctx context.Context, productIDs []id.ID) (map[id.ID]*catalog.Product, error)
	GetOrCreateBatch(ctx context.Context, productID id.ID, batchNo string, mfg *time.Time, expiry time.Time) (*catalog.BatchLot, bool, error)
}

// Ledger appends movements.
type Ledger interface {
	WriteMovements(ctx context.Context, movements []inventory.Movement) error
}

// Auditor records audit rows.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// Service books goods receipts.
type Service struct {
	repo      Repository
	txManager tx.Manager
	catalog   Catalog
	ledger    Ledger
	numerator numerator.Generator
	audit     Auditor
}

// NewService creates a new receipt service.
func NewService(repo Repository, txManager tx.Manager, cat Catalog, ledger Ledger, num numerator.Generator, auditor Auditor) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		catalog:   cat,
		ledger:    ledger,
		numerator: num,
		audit:     auditor,
	}
}

// ReceiveStock registers batches and writes PURCHASE movements in one transaction.
func (s *Service) ReceiveStock(ctx context.Context, actor *identity.Actor, r Receipt) (*GoodsReceipt, error) {
	if err := validate(r); err != nil {
		return nil, err
	}

	number, err := s.numerator.NextDocNumber(ctx, numerator.ForType(numerator.DocGRN))
	if err != nil {
		return nil, fmt.Errorf("generate receipt number: %w", err)
	}

	grn := &GoodsReceipt{
		ID:           id.New(),
		ReceiptNo:    number,
		LocationID:   r.LocationID,
		SupplierName: strings.TrimSpace(r.SupplierName),
		ReceivedBy:   actor.Ref(),
		CreatedAt:    time.Now().UTC(),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		productIDs := make([]id.ID, 0, len(r.Lines))
		for _, l := range r.Lines {
			productIDs = append(productIDs, l.ProductID)
		}
		products, err := s.catalog.Products(ctx, id.SortedUnique(productIDs))
		if err != nil {
			return err
		}

		movements := make([]inventory.Movement, 0, len(r.Lines))
		for i, l := range r.Lines {
			product := products[l.ProductID]

			qtyBase := l.Qty
			if strings.EqualFold(l.Unit, UnitPack) {
				qtyBase = product.PacksToBase(l.Qty)
			}

			batch, _, err := s.catalog.GetOrCreateBatch(ctx, l.ProductID, l.BatchNo, l.MfgDate, l.ExpiryDate)
			if err != nil {
				return err
			}

			grn.Lines = append(grn.Lines, ReceiptLine{
				ID:        id.New(),
				ReceiptID: grn.ID,
				LineNo:    i + 1,
				ProductID: l.ProductID,
				BatchID:   batch.ID,
				QtyBase:   qtyBase,
			})
			movements = append(movements, inventory.NewMovement(
				r.LocationID, batch.ID, qtyBase, inventory.ReasonPurchase, inventory.RefGoodsReceipt, grn.ID))
		}

		if err := s.repo.Create(ctx, grn); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		return s.ledger.WriteMovements(ctx, movements)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "goods received",
		"receipt_id", grn.ID,
		"receipt_no", grn.ReceiptNo,
		"lines", len(grn.Lines),
	)

	if s.audit != nil {
		s.audit.Record(ctx, audit.Entry{
			Actor:    actor,
			Table:    TableGoodsReceipts,
			RecordID: grn.ID,
			Action:   audit.ActionReceive,
			After: map[string]any{
				"receipt_no":  grn.ReceiptNo,
				"location_id": grn.LocationID.String(),
				"lines":       len(grn.Lines),
			},
		})
	}
	return grn, nil
}

func validate(r Receipt) error {
	if id.IsNil(r.LocationID) {
		return apperror.NewValidation("location is required")
	}
	if len(r.Lines) == 0 {
		return apperror.NewValidation("receipt has no lines")
	}
	for i, l := range r.Lines {
		lineNo := i + 1
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: product is required", lineNo))
		}
		if !l.Qty.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", lineNo))
		}
		switch strings.ToUpper(l.Unit) {
		case "", UnitBase, UnitPack:
		default:
			return apperror.NewValidation(fmt.Sprintf("line %d: unknown unit %q", lineNo, l.Unit))
		}
	}
	return nil
}
