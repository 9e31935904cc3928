package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/domain/receipt"
)

// CreateReceiptRequest books goods received from a supplier.
type CreateReceiptRequest struct {
	LocationID   string               `json:"locationId" binding:"required"`
	SupplierName string               `json:"supplierName"`
	Lines        []ReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ReceiptLineRequest is one received batch. Dates use YYYY-MM-DD.
type ReceiptLineRequest struct {
	ProductID  string          `json:"productId" binding:"required"`
	BatchNo    string          `json:"batchNo" binding:"required"`
	MfgDate    string          `json:"mfgDate,omitempty"`
	ExpiryDate string          `json:"expiryDate" binding:"required"`
	Unit       string          `json:"unit,omitempty" binding:"omitempty,oneof=BASE PACK base pack"`
	Qty        decimal.Decimal `json:"qty"`
}

// ToReceipt converts the request into a receipt input.
func (r *CreateReceiptRequest) ToReceipt() (receipt.Receipt, error) {
	locationID, err := parseID("locationId", r.LocationID)
	if err != nil {
		return receipt.Receipt{}, err
	}

	out := receipt.Receipt{
		LocationID:   locationID,
		SupplierName: r.SupplierName,
		Lines:        make([]receipt.Line, 0, len(r.Lines)),
	}
	for i, l := range r.Lines {
		productID, err := parseID(fmt.Sprintf("lines[%d].productId", i), l.ProductID)
		if err != nil {
			return receipt.Receipt{}, err
		}
		expiry, err := parseDate(fmt.Sprintf("lines[%d].expiryDate", i), l.ExpiryDate)
		if err != nil {
			return receipt.Receipt{}, err
		}
		var mfg *time.Time
		if l.MfgDate != "" {
			d, err := parseDate(fmt.Sprintf("lines[%d].mfgDate", i), l.MfgDate)
			if err != nil {
				return receipt.Receipt{}, err
			}
			mfg = &d
		}
		out.Lines = append(out.Lines, receipt.Line{
			ProductID:  productID,
			BatchNo:    l.BatchNo,
			MfgDate:    mfg,
			ExpiryDate: expiry,
			Unit:       l.Unit,
			Qty:        l.Qty,
		})
	}
	return out, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, apperror.NewValidation("invalid " + field).
			WithDetail("field", field).
			WithDetail("format", time.DateOnly)
	}
	return t, nil
}
