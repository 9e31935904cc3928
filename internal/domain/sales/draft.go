package sales

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/inventory"
)

// Draft is the input for creating an invoice.
type Draft struct {
	LocationID     id.ID
	CustomerName   string
	CustomerPhone  *string
	PrescriptionID *id.ID
	Lines          []DraftLine
}

// DraftLine is a requested sale of one product.
// Without BatchID the quantity is spread over batches first-expired-first-out.
type DraftLine struct {
	ProductID   id.ID
	BatchID     *id.ID
	UOM         UOM
	Qty         types.Quantity
	RatePerBase types.Money
	Discount    types.Money
	// TaxPercent overrides the product tax rate when set
	TaxPercent *decimal.Decimal
}

// Validate checks the draft before any lookup happens.
func (d Draft) Validate() error {
	if id.IsNil(d.LocationID) {
		return apperror.NewValidation("location is required")
	}
	for i, l := range d.Lines {
		lineNo := i + 1
		if id.IsNil(l.ProductID) {
			return lineError(lineNo, "product is required")
		}
		switch normalizeUOM(l.UOM) {
		case UOMBase, UOMPack:
		default:
			return lineError(lineNo, fmt.Sprintf("unknown unit %q", l.UOM))
		}
		if !l.Qty.IsPositive() {
			return lineError(lineNo, "quantity must be positive")
		}
		if l.RatePerBase.IsNegative() {
			return lineError(lineNo, "rate cannot be negative")
		}
		if l.Discount.IsNegative() {
			return lineError(lineNo, "discount cannot be negative")
		}
		if l.TaxPercent != nil && l.TaxPercent.IsNegative() {
			return lineError(lineNo, "tax percent cannot be negative")
		}
	}
	return nil
}

func normalizeUOM(u UOM) UOM {
	if u == "" {
		return UOMBase
	}
	return UOM(strings.ToUpper(string(u)))
}

func hasBatch(l DraftLine) bool {
	return l.BatchID != nil && !id.IsNil(*l.BatchID)
}

// takeAllocations removes qty from the front of pool, splitting a batch
// between two lines when one line needs only part of it.
func takeAllocations(pool []inventory.Allocation, qty types.Quantity) (taken, rest []inventory.Allocation) {
	remaining := qty
	for len(pool) > 0 && remaining.IsPositive() {
		head := pool[0]
		if head.Qty.GreaterThan(remaining) {
			part := head
			part.Qty = remaining
			taken = append(taken, part)
			head.Qty = head.Qty.Sub(remaining)
			pool[0] = head
			break
		}
		taken = append(taken, head)
		remaining = remaining.Sub(head.Qty)
		pool = pool[1:]
	}
	return taken, pool
}

func lineError(lineNo int, msg string) *apperror.AppError {
	return apperror.NewValidation(fmt.Sprintf("line %d: %s", lineNo, msg)).
		WithDetail("line_no", lineNo)
}

// splitDiscount spreads a line discount over allocations in proportion to quantity.
// The last allocation absorbs the rounding residual so the parts sum to total.
func splitDiscount(total types.Money, qty types.Quantity, allocs []inventory.Allocation) []types.Money {
	parts := make([]types.Money, len(allocs))
	if len(allocs) == 0 {
		return parts
	}
	remaining := total
	for i, a := range allocs {
		if i == len(allocs)-1 {
			parts[i] = remaining
			break
		}
		part := types.Zero()
		if qty.IsPositive() {
			part = types.RoundHalfUp(total.Mul(a.Qty).Div(qty), types.LineScale)
		}
		parts[i] = part
		remaining = remaining.Sub(part)
	}
	return parts
}
