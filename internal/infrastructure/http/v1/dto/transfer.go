package dto

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pharmaerp/internal/domain/transfer"
)

// CreateTransferRequest moves batches between two locations.
type CreateTransferRequest struct {
	FromLocationID string                `json:"fromLocationId" binding:"required"`
	ToLocationID   string                `json:"toLocationId" binding:"required"`
	Lines          []TransferLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// TransferLineRequest moves a base-unit quantity of one batch.
type TransferLineRequest struct {
	BatchID string          `json:"batchId" binding:"required"`
	QtyBase decimal.Decimal `json:"qtyBase"`
}

// ToTransfer converts the request into a transfer input.
func (r *CreateTransferRequest) ToTransfer() (transfer.Transfer, error) {
	from, err := parseID("fromLocationId", r.FromLocationID)
	if err != nil {
		return transfer.Transfer{}, err
	}
	to, err := parseID("toLocationId", r.ToLocationID)
	if err != nil {
		return transfer.Transfer{}, err
	}

	out := transfer.Transfer{
		FromLocationID: from,
		ToLocationID:   to,
		Lines:          make([]transfer.Line, 0, len(r.Lines)),
	}
	for i, l := range r.Lines {
		batchID, err := parseID(fmt.Sprintf("lines[%d].batchId", i), l.BatchID)
		if err != nil {
			return transfer.Transfer{}, err
		}
		out.Lines = append(out.Lines, transfer.Line{BatchID: batchID, QtyBase: l.QtyBase})
	}
	return out, nil
}
