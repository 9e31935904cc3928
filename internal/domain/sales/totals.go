package sales

import (
	"github.com/shopspring/decimal"

	"pharmaerp/internal/core/types"
)

// LineAmounts are the computed money values of one line.
type LineAmounts struct {
	Gross    types.Money
	Discount types.Money
	Taxable  types.Money
	Tax      types.Money
	Total    types.Money
}

// ComputeLine applies the line tax rules:
//
//	taxable    = qty * rate - discount
//	tax        = round_half_up(taxable * tax% / 100, 4)
//	line_total = round_half_up(taxable + tax, 4)
//
// Gross and taxable stay exact; qty and rate carry four places each, so
// gross never exceeds eight.
func ComputeLine(l Line) LineAmounts {
	gross := l.QtyBase.Mul(l.RatePerBase)
	taxable := gross.Sub(l.DiscountAmount)
	tax := types.RoundHalfUp(types.Percent(taxable, l.TaxPercent), types.LineScale)
	return LineAmounts{
		Gross:    gross,
		Discount: l.DiscountAmount,
		Taxable:  taxable,
		Tax:      tax,
		Total:    types.RoundHalfUp(taxable.Add(tax), types.LineScale),
	}
}

// Totals accumulates invoice totals.
type Totals struct {
	Gross    types.Money
	Discount types.Money
	Tax      types.Money
	Net      types.Money
	RoundOff types.Money
}

// NewTotals returns zeroed totals.
func NewTotals() Totals {
	return Totals{
		Gross:    decimal.Zero,
		Discount: decimal.Zero,
		Tax:      decimal.Zero,
		Net:      decimal.Zero,
		RoundOff: decimal.Zero,
	}
}

// Add accumulates one line.
func (t *Totals) Add(a LineAmounts) {
	t.Gross = t.Gross.Add(a.Gross)
	t.Discount = t.Discount.Add(a.Discount)
	t.Tax = t.Tax.Add(a.Tax)
}

// Finalize rounds the net to money scale and keeps the residual as round-off,
// so Net == Gross - Discount + Tax + RoundOff holds exactly.
func (t Totals) Finalize() Totals {
	unrounded := t.Gross.Sub(t.Discount).Add(t.Tax)
	t.Net = types.RoundHalfUp(unrounded, types.MoneyScale)
	t.RoundOff = t.Net.Sub(unrounded)
	return t
}

// DerivePaymentStatus returns the payment status and outstanding amount.
// PAID when paid covers net, PARTIAL when something was paid, CREDIT otherwise.
func DerivePaymentStatus(net, paid types.Money) (PaymentStatus, types.Money) {
	outstanding := types.Max(net.Sub(paid), decimal.Zero)
	switch {
	case paid.GreaterThanOrEqual(net):
		return PaymentPaid, outstanding
	case paid.IsPositive():
		return PaymentPartial, outstanding
	default:
		return PaymentCredit, outstanding
	}
}
