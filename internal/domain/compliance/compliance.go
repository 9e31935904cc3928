// Package compliance enforces prescription rules and keeps the controlled-drug registers.
package compliance

import (
	"context"
	"fmt"
	"time"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/sales"
	"pharmaerp/pkg/logger"
)

// Register is the statutory book a sale is written to.
type Register string

const (
	RegisterH1   Register = "H1"
	RegisterNDPS Register = "NDPS"
)

// Entry is one register row for a controlled sale.
type Entry struct {
	ID             id.ID            `db:"id" json:"id"`
	InvoiceID      id.ID            `db:"invoice_id" json:"invoiceId"`
	LineID         id.ID            `db:"line_id" json:"lineId"`
	ProductID      id.ID            `db:"product_id" json:"productId"`
	BatchID        id.ID            `db:"batch_id" json:"batchId"`
	Schedule       catalog.Schedule `db:"schedule" json:"schedule"`
	Register       Register         `db:"register" json:"register"`
	QtyBase        types.Quantity   `db:"qty_base" json:"qtyBase"`
	PrescriptionID *id.ID           `db:"prescription_id" json:"prescriptionId,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
}

// Repository persists register entries.
type Repository interface {
	CreateEntries(ctx context.Context, entries []Entry) error
	ListByInvoice(ctx context.Context, invoiceID id.ID) ([]Entry, error)
}

// Service implements the posting engine's compliance hooks.
type Service struct {
	repo Repository
	now  func() time.Time
}

var _ sales.ComplianceHooks = (*Service)(nil)

// NewService creates a new compliance service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// EnsurePrescription fails when any line sells a controlled drug without a prescription.
func (s *Service) EnsurePrescription(_ context.Context, inv *sales.Invoice, products map[id.ID]*catalog.Product) error {
	if inv.PrescriptionID != nil && !id.IsNil(*inv.PrescriptionID) {
		return nil
	}
	for _, line := range inv.Lines {
		product, ok := products[line.ProductID]
		if !ok || !product.Schedule.IsControlled() {
			continue
		}
		return apperror.NewComplianceViolation(
			fmt.Sprintf("Schedule %s drug %s requires a prescription", product.Schedule, product.Name)).
			WithDetail("invoice_id", inv.ID.String()).
			WithDetail("product_id", product.ID.String()).
			WithDetail("line_no", line.LineNo)
	}
	return nil
}

// BuildEntries returns one register entry per H1 or NDPS line.
func (s *Service) BuildEntries(inv *sales.Invoice, products map[id.ID]*catalog.Product) []Entry {
	now := s.now().UTC()
	var entries []Entry
	for _, line := range inv.Lines {
		product, ok := products[line.ProductID]
		if !ok || !product.Schedule.RequiresRegister() {
			continue
		}
		entries = append(entries, Entry{
			ID:             id.New(),
			InvoiceID:      inv.ID,
			LineID:         line.ID,
			ProductID:      line.ProductID,
			BatchID:        line.BatchID,
			Schedule:       product.Schedule,
			Register:       Register(product.Schedule),
			QtyBase:        line.QtyBase,
			PrescriptionID: inv.PrescriptionID,
			CreatedAt:      now,
		})
	}
	return entries
}

// CreateEntries writes register rows for a posted invoice.
func (s *Service) CreateEntries(ctx context.Context, inv *sales.Invoice, products map[id.ID]*catalog.Product) error {
	entries := s.BuildEntries(inv, products)
	if len(entries) == 0 {
		return nil
	}
	if err := s.repo.CreateEntries(ctx, entries); err != nil {
		return fmt.Errorf("create compliance entries: %w", err)
	}
	logger.Info(ctx, "compliance entries created",
		"invoice_id", inv.ID,
		"count", len(entries),
	)
	return nil
}

// EntriesFor returns register rows written for an invoice.
func (s *Service) EntriesFor(ctx context.Context, invoiceID id.ID) ([]Entry, error) {
	return s.repo.ListByInvoice(ctx, invoiceID)
}
