package dto

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/audit"
	"pharmaerp/internal/domain/inventory"
	"pharmaerp/internal/domain/sales"
)

// CreateInvoiceRequest represents a request to create a sales invoice.
type CreateInvoiceRequest struct {
	LocationID      string               `json:"locationId" binding:"required"`
	CustomerName    string               `json:"customerName"`
	CustomerPhone   *string              `json:"customerPhone,omitempty"`
	PrescriptionID  *string              `json:"prescriptionId,omitempty"`
	Lines           []InvoiceLineRequest `json:"lines" binding:"dive"`
	PostImmediately bool                 `json:"postImmediately,omitempty"`
}

// InvoiceLineRequest is one requested product. Without batchId the
// quantity is allocated over batches by earliest expiry.
type InvoiceLineRequest struct {
	ProductID   string           `json:"productId" binding:"required"`
	BatchID     *string          `json:"batchId,omitempty"`
	UOM         string           `json:"uom,omitempty" binding:"omitempty,oneof=BASE PACK base pack"`
	Qty         decimal.Decimal  `json:"qty"`
	RatePerBase decimal.Decimal  `json:"ratePerBase"`
	Discount    decimal.Decimal  `json:"discount"`
	TaxPercent  *decimal.Decimal `json:"taxPercent,omitempty"`
}

// ToDraft converts the request into a sales draft.
func (r *CreateInvoiceRequest) ToDraft() (sales.Draft, error) {
	locationID, err := parseID("locationId", r.LocationID)
	if err != nil {
		return sales.Draft{}, err
	}
	prescriptionID, err := parseOptionalID("prescriptionId", r.PrescriptionID)
	if err != nil {
		return sales.Draft{}, err
	}

	d := sales.Draft{
		LocationID:     locationID,
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		PrescriptionID: prescriptionID,
		Lines:          make([]sales.DraftLine, 0, len(r.Lines)),
	}
	for i, l := range r.Lines {
		productID, err := parseID(fmt.Sprintf("lines[%d].productId", i), l.ProductID)
		if err != nil {
			return sales.Draft{}, err
		}
		batchID, err := parseOptionalID(fmt.Sprintf("lines[%d].batchId", i), l.BatchID)
		if err != nil {
			return sales.Draft{}, err
		}
		d.Lines = append(d.Lines, sales.DraftLine{
			ProductID:   productID,
			BatchID:     batchID,
			UOM:         sales.UOM(l.UOM),
			Qty:         l.Qty,
			RatePerBase: l.RatePerBase,
			Discount:    l.Discount,
			TaxPercent:  l.TaxPercent,
		})
	}
	return d, nil
}

// AddPaymentRequest records money received against a posted invoice.
type AddPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Mode   string          `json:"mode,omitempty"`
}

// InvoiceHistoryQuery bounds the audit trail returned for an invoice.
type InvoiceHistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// InvoiceMovementsResponse lists the ledger rows written for an invoice.
type InvoiceMovementsResponse struct {
	InvoiceID id.ID                `json:"invoiceId"`
	Movements []inventory.Movement `json:"movements"`
}

// InvoiceHistoryResponse lists audit rows for an invoice, newest first.
type InvoiceHistoryResponse struct {
	InvoiceID id.ID       `json:"invoiceId"`
	Entries   []audit.Log `json:"entries"`
}
