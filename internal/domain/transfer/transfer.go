// Package transfer moves stock between locations.
package transfer

import (
	"context"
	"fmt"
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

// TableStockTransfers is the audit table name of transfers.
const TableStockTransfers = "stock_transfers"

// Transfer is the input for moving stock.
type Transfer struct {
	FromLocationID id.ID
	ToLocationID   id.ID
	Lines          []Line
}

// Line moves a quantity of one batch.
type Line struct {
	BatchID id.ID
	QtyBase types.Quantity
}

// StockTransfer is a stored transfer document.
type StockTransfer struct {
	ID             id.ID          `db:"id" json:"id"`
	TransferNo     string         `db:"transfer_no" json:"transferNo"`
	FromLocationID id.ID          `db:"from_location_id" json:"fromLocationId"`
	ToLocationID   id.ID          `db:"to_location_id" json:"toLocationId"`
	PostedBy       *id.ID         `db:"posted_by" json:"postedBy,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	Lines          []TransferLine `db:"-" json:"lines"`
}

// TransferLine is a stored transfer line.
type TransferLine struct {
	ID         id.ID          `db:"id" json:"id"`
	TransferID id.ID          `db:"transfer_id" json:"transferId"`
	LineNo     int            `db:"line_no" json:"lineNo"`
	BatchID    id.ID          `db:"batch_id" json:"batchId"`
	QtyBase    types.Quantity `db:"qty_base" json:"qtyBase"`
}

// Repository persists transfer documents.
type Repository interface {
	Create(ctx context.Context, t *StockTransfer) error
}

// Ledger is the stock ledger as used by transfers.
type Ledger interface {
	inventory.StockReader
	LockBatches(ctx context.Context, batchIDs []id.ID) error
	WriteMovements(ctx context.Context, movements []inventory.Movement) error
}

// Batches resolves batch lots.
type Batches interface {
	Batches(ctx context.Context, batchIDs []id.ID) (map[id.ID]*catalog.BatchLot, error)
}

// Auditor records audit rows.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// Service posts stock transfers.
type Service struct {
	repo      Repository
	txManager tx.Manager
	ledger    Ledger
	batches   Batches
	numerator numerator.Generator
	audit     Auditor
}

// NewService creates a new transfer service.
func NewService(repo Repository, txManager tx.Manager, ledger Ledger, batches Batches, num numerator.Generator, auditor Auditor) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		ledger:    ledger,
		batches:   batches,
		numerator: num,
		audit:     auditor,
	}
}

// PostTransfer checks source stock under batch locks and writes a
// TRANSFER_OUT at the source and a TRANSFER_IN at the destination per line.
func (s *Service) PostTransfer(ctx context.Context, actor *identity.Actor, t Transfer) (*StockTransfer, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	number, err := s.numerator.NextDocNumber(ctx, numerator.ForType(numerator.DocTransfer))
	if err != nil {
		return nil, fmt.Errorf("generate transfer number: %w", err)
	}

	doc := &StockTransfer{
		ID:             id.New(),
		TransferNo:     number,
		FromLocationID: t.FromLocationID,
		ToLocationID:   t.ToLocationID,
		PostedBy:       actor.Ref(),
		CreatedAt:      time.Now().UTC(),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batchIDs := make([]id.ID, 0, len(t.Lines))
		required := make(map[id.ID]types.Quantity, len(t.Lines))
		for _, l := range t.Lines {
			batchIDs = append(batchIDs, l.BatchID)
			if q, ok := required[l.BatchID]; ok {
				required[l.BatchID] = q.Add(l.QtyBase)
			} else {
				required[l.BatchID] = l.QtyBase
			}
		}
		batchIDs = id.SortedUnique(batchIDs)

		if err := s.ledger.LockBatches(ctx, batchIDs); err != nil {
			return err
		}
		batches, err := s.batches.Batches(ctx, batchIDs)
		if err != nil {
			return err
		}

		for _, batchID := range batchIDs {
			onHand, err := s.ledger.StockOnHand(ctx, t.FromLocationID, batchID)
			if err != nil {
				return err
			}
			if onHand.LessThan(required[batchID]) {
				return apperror.NewInsufficientStock(
					batches[batchID].ProductID.String(), batchID.String(), onHand, required[batchID])
			}
		}

		movements := make([]inventory.Movement, 0, 2*len(t.Lines))
		for i, l := range t.Lines {
			doc.Lines = append(doc.Lines, TransferLine{
				ID:         id.New(),
				TransferID: doc.ID,
				LineNo:     i + 1,
				BatchID:    l.BatchID,
				QtyBase:    l.QtyBase,
			})
			movements = append(movements,
				inventory.NewMovement(t.FromLocationID, l.BatchID, l.QtyBase.Neg(),
					inventory.ReasonTransferOut, inventory.RefStockTransfer, doc.ID),
				inventory.NewMovement(t.ToLocationID, l.BatchID, l.QtyBase,
					inventory.ReasonTransferIn, inventory.RefStockTransfer, doc.ID),
			)
		}

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		return s.ledger.WriteMovements(ctx, movements)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock transferred",
		"transfer_id", doc.ID,
		"transfer_no", doc.TransferNo,
		"from", doc.FromLocationID,
		"to", doc.ToLocationID,
	)

	if s.audit != nil {
		s.audit.Record(ctx, audit.Entry{
			Actor:    actor,
			Table:    TableStockTransfers,
			RecordID: doc.ID,
			Action:   audit.ActionTransfer,
			After: map[string]any{
				"transfer_no":      doc.TransferNo,
				"from_location_id": doc.FromLocationID.String(),
				"to_location_id":   doc.ToLocationID.String(),
				"lines":            len(doc.Lines),
			},
		})
	}
	return doc, nil
}

func validate(t Transfer) error {
	if id.IsNil(t.FromLocationID) || id.IsNil(t.ToLocationID) {
		return apperror.NewValidation("source and destination locations are required")
	}
	if t.FromLocationID == t.ToLocationID {
		return apperror.NewValidation("source and destination must differ")
	}
	if len(t.Lines) == 0 {
		return apperror.NewValidation("transfer has no lines")
	}
	for i, l := range t.Lines {
		if id.IsNil(l.BatchID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: batch is required", i+1))
		}
		if !l.QtyBase.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
	}
	return nil
}
