package sales

import (
	"context"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
)

// Repository defines persistence for invoices, lines and payments.
type Repository interface {
	// Create inserts the header and its lines
	Create(ctx context.Context, inv *Invoice) error

	// GetByID returns the header only
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	// GetForUpdateNoWait locks the header row without waiting.
	// A held lock surfaces as a ConcurrentModification error.
	GetForUpdateNoWait(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	// Update writes the mutable header fields
	Update(ctx context.Context, inv *Invoice) error

	// Delete removes the header together with lines and payments
	Delete(ctx context.Context, invoiceID id.ID) error

	GetLines(ctx context.Context, invoiceID id.ID) ([]Line, error)

	// UpdateLineAmounts writes tax_amount and line_total
	UpdateLineAmounts(ctx context.Context, lines []Line) error

	GetPayments(ctx context.Context, invoiceID id.ID) ([]Payment, error)
	AddPayment(ctx context.Context, p Payment) error
	SumPayments(ctx context.Context, invoiceID id.ID) (types.Money, error)
}
