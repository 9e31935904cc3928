// Package sales provides the sales invoice lifecycle: draft, posting, cancellation and payments.
package sales

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/entity"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPosted    Status = "POSTED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus is derived from payments against the net total.
type PaymentStatus string

const (
	PaymentCredit  PaymentStatus = "CREDIT"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// UOM is the unit the line was sold in. Quantities are always stored in base units.
type UOM string

const (
	UOMBase UOM = "BASE"
	UOMPack UOM = "PACK"
)

// TableInvoices is the audit table name of invoices.
const TableInvoices = "sales_invoices"

// Invoice is a sales invoice header with its lines and payments.
type Invoice struct {
	entity.BaseEntity

	InvoiceNo      string  `db:"invoice_no" json:"invoiceNo"`
	LocationID     id.ID   `db:"location_id" json:"locationId"`
	CustomerName   string  `db:"customer_name" json:"customerName"`
	CustomerPhone  *string `db:"customer_phone" json:"customerPhone,omitempty"`
	PrescriptionID *id.ID  `db:"prescription_id" json:"prescriptionId,omitempty"`

	GrossTotal     types.Money `db:"gross_total" json:"grossTotal"`
	DiscountTotal  types.Money `db:"discount_total" json:"discountTotal"`
	TaxTotal       types.Money `db:"tax_total" json:"taxTotal"`
	NetTotal       types.Money `db:"net_total" json:"netTotal"`
	RoundOffAmount types.Money `db:"round_off_amount" json:"roundOffAmount"`
	TotalPaid      types.Money `db:"total_paid" json:"totalPaid"`
	Outstanding    types.Money `db:"outstanding" json:"outstanding"`

	Status        Status        `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`

	CreatedBy   *id.ID     `db:"created_by" json:"createdBy,omitempty"`
	PostedAt    *time.Time `db:"posted_at" json:"postedAt,omitempty"`
	PostedBy    *id.ID     `db:"posted_by" json:"postedBy,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy *id.ID     `db:"cancelled_by" json:"cancelledBy,omitempty"`

	Lines    []Line    `db:"-" json:"lines,omitempty"`
	Payments []Payment `db:"-" json:"payments,omitempty"`
}

// NewInvoice creates an empty DRAFT invoice.
func NewInvoice(invoiceNo string, locationID id.ID, customerName string) *Invoice {
	return &Invoice{
		BaseEntity:     entity.NewBaseEntity(),
		InvoiceNo:      invoiceNo,
		LocationID:     locationID,
		CustomerName:   strings.TrimSpace(customerName),
		GrossTotal:     decimal.Zero,
		DiscountTotal:  decimal.Zero,
		TaxTotal:       decimal.Zero,
		NetTotal:       decimal.Zero,
		RoundOffAmount: decimal.Zero,
		TotalPaid:      decimal.Zero,
		Outstanding:    decimal.Zero,
		Status:         StatusDraft,
		PaymentStatus:  PaymentCredit,
	}
}

// Validate checks header invariants.
func (inv *Invoice) Validate(_ context.Context) error {
	if id.IsNil(inv.LocationID) {
		return apperror.NewValidation("location is required")
	}
	if strings.TrimSpace(inv.InvoiceNo) == "" {
		return apperror.NewValidation("invoice number is required")
	}
	return nil
}

// CanTransition reports whether the lifecycle allows moving to target.
func (inv *Invoice) CanTransition(target Status) bool {
	switch inv.Status {
	case StatusDraft:
		return target == StatusPosted
	case StatusPosted:
		return target == StatusCancelled
	}
	return false
}

func (inv *Invoice) transitionError(target Status) error {
	return apperror.NewInvalidStateTransition("invoice", string(inv.Status), string(target)).
		WithDetail("invoice_id", inv.ID.String())
}

// MarkPosted moves a DRAFT invoice to POSTED.
func (inv *Invoice) MarkPosted(by *id.ID, at time.Time) error {
	if !inv.CanTransition(StatusPosted) {
		return inv.transitionError(StatusPosted)
	}
	inv.Status = StatusPosted
	inv.PostedAt = &at
	inv.PostedBy = by
	inv.Touch()
	return nil
}

// MarkCancelled moves a POSTED invoice to CANCELLED.
func (inv *Invoice) MarkCancelled(by *id.ID, at time.Time) error {
	if !inv.CanTransition(StatusCancelled) {
		return inv.transitionError(StatusCancelled)
	}
	inv.Status = StatusCancelled
	inv.CancelledAt = &at
	inv.CancelledBy = by
	inv.Touch()
	return nil
}

// ApplyTotals copies finalized totals onto the header.
func (inv *Invoice) ApplyTotals(t Totals) {
	inv.GrossTotal = t.Gross
	inv.DiscountTotal = t.Discount
	inv.TaxTotal = t.Tax
	inv.NetTotal = t.Net
	inv.RoundOffAmount = t.RoundOff
}

// ApplyPayments sets total paid and recomputes outstanding and payment status.
func (inv *Invoice) ApplyPayments(paid types.Money) {
	inv.TotalPaid = paid
	inv.PaymentStatus, inv.Outstanding = DerivePaymentStatus(inv.NetTotal, paid)
}

// BatchIDs returns the batches referenced by the lines.
func (inv *Invoice) BatchIDs() []id.ID {
	ids := make([]id.ID, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		ids = append(ids, l.BatchID)
	}
	return ids
}

// ProductIDs returns the distinct products referenced by the lines.
func (inv *Invoice) ProductIDs() []id.ID {
	seen := make(map[id.ID]struct{}, len(inv.Lines))
	ids := make([]id.ID, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}

// Snapshot returns the header fields recorded in audit rows.
func (inv *Invoice) Snapshot() map[string]any {
	snap := map[string]any{
		"invoice_no":       inv.InvoiceNo,
		"location_id":      inv.LocationID.String(),
		"status":           string(inv.Status),
		"payment_status":   string(inv.PaymentStatus),
		"gross_total":      inv.GrossTotal.String(),
		"discount_total":   inv.DiscountTotal.String(),
		"tax_total":        inv.TaxTotal.String(),
		"net_total":        inv.NetTotal.String(),
		"round_off_amount": inv.RoundOffAmount.String(),
		"total_paid":       inv.TotalPaid.String(),
		"outstanding":      inv.Outstanding.String(),
		"lines":            len(inv.Lines),
		"version":          inv.Version,
	}
	if inv.PostedAt != nil {
		snap["posted_at"] = inv.PostedAt.UTC().Format(time.RFC3339)
	}
	if inv.CancelledAt != nil {
		snap["cancelled_at"] = inv.CancelledAt.UTC().Format(time.RFC3339)
	}
	return snap
}

// Line is one product-batch row of an invoice.
// TaxAmount and LineTotal stay null until the invoice is posted.
type Line struct {
	ID             id.ID               `db:"id" json:"id"`
	InvoiceID      id.ID               `db:"invoice_id" json:"invoiceId"`
	LineNo         int                 `db:"line_no" json:"lineNo"`
	ProductID      id.ID               `db:"product_id" json:"productId"`
	BatchID        id.ID               `db:"batch_id" json:"batchId"`
	SoldUOM        UOM                 `db:"sold_uom" json:"soldUom"`
	QtyBase        types.Quantity      `db:"qty_base" json:"qtyBase"`
	RatePerBase    types.Money         `db:"rate_per_base" json:"ratePerBase"`
	DiscountAmount types.Money         `db:"discount_amount" json:"discountAmount"`
	TaxPercent     decimal.Decimal     `db:"tax_percent" json:"taxPercent"`
	TaxAmount      decimal.NullDecimal `db:"tax_amount" json:"taxAmount"`
	LineTotal      decimal.NullDecimal `db:"line_total" json:"lineTotal"`
}

// Payment is money received against an invoice.
type Payment struct {
	ID         id.ID       `db:"id" json:"id"`
	InvoiceID  id.ID       `db:"invoice_id" json:"invoiceId"`
	Amount     types.Money `db:"amount" json:"amount"`
	Mode       string      `db:"mode" json:"mode"`
	ReceivedAt time.Time   `db:"received_at" json:"receivedAt"`
}

// Result is returned by posting and cancellation.
type Result struct {
	InvoiceID     id.ID         `json:"invoiceId"`
	InvoiceNo     string        `json:"invoiceNo"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	NetTotal      types.Money   `json:"netTotal"`
	Outstanding   types.Money   `json:"outstanding"`
}

func resultOf(inv *Invoice) *Result {
	return &Result{
		InvoiceID:     inv.ID,
		InvoiceNo:     inv.InvoiceNo,
		Status:        inv.Status,
		PaymentStatus: inv.PaymentStatus,
		NetTotal:      inv.NetTotal,
		Outstanding:   inv.Outstanding,
	}
}
