package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/inventory"
)

func d(s string) types.Money { return types.MustDecimal(s) }

func TestComputeLine(t *testing.T) {
	tests := []struct {
		name     string
		line     Line
		tax      string
		total    string
		taxable  string
		discount string
	}{
		{
			name:    "plain line",
			line:    Line{QtyBase: d("10"), RatePerBase: d("2.50"), DiscountAmount: d("0"), TaxPercent: d("12")},
			taxable: "25", tax: "3", total: "28", discount: "0",
		},
		{
			name:    "discount reduces taxable",
			line:    Line{QtyBase: d("3"), RatePerBase: d("10"), DiscountAmount: d("5"), TaxPercent: d("5")},
			taxable: "25", tax: "1.25", total: "26.25", discount: "5",
		},
		{
			name:    "tax rounds half up at four places",
			line:    Line{QtyBase: d("1"), RatePerBase: d("0.0125"), DiscountAmount: d("0"), TaxPercent: d("50")},
			taxable: "0.0125", tax: "0.0063", total: "0.0188", discount: "0",
		},
		{
			name:    "tax uses the unrounded taxable",
			line:    Line{QtyBase: d("0.1"), RatePerBase: d("0.0206"), DiscountAmount: d("0"), TaxPercent: d("12")},
			taxable: "0.00206", tax: "0.0002", total: "0.0023", discount: "0",
		},
		{
			name:    "line total rounds the exact sum",
			line:    Line{QtyBase: d("0.1"), RatePerBase: d("0.0542"), DiscountAmount: d("0"), TaxPercent: d("12")},
			taxable: "0.00542", tax: "0.0007", total: "0.0061", discount: "0",
		},
		{
			name:    "discount subtracted before rounding",
			line:    Line{QtyBase: d("1.0001"), RatePerBase: d("9.9999"), DiscountAmount: d("0.0001"), TaxPercent: d("5")},
			taxable: "10.00079999", tax: "0.5", total: "10.5008", discount: "0.0001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLine(tt.line)
			assert.True(t, got.Taxable.Equal(d(tt.taxable)), "taxable %s", got.Taxable)
			assert.True(t, got.Tax.Equal(d(tt.tax)), "tax %s", got.Tax)
			assert.True(t, got.Total.Equal(d(tt.total)), "total %s", got.Total)
			assert.True(t, got.Discount.Equal(d(tt.discount)))
		})
	}
}

func TestTotals_Finalize(t *testing.T) {
	totals := NewTotals()
	totals.Add(ComputeLine(Line{QtyBase: d("3"), RatePerBase: d("3.3333"), DiscountAmount: d("0.1"), TaxPercent: d("12")}))
	totals.Add(ComputeLine(Line{QtyBase: d("1"), RatePerBase: d("7.005"), DiscountAmount: d("0"), TaxPercent: d("5")}))

	final := totals.Finalize()

	assert.Equal(t, int32(-2), final.Net.Exponent(), "net has two decimals: %s", final.Net)
	reconstructed := final.Gross.Sub(final.Discount).Add(final.Tax).Add(final.RoundOff)
	assert.True(t, final.Net.Equal(reconstructed), "net %s vs %s", final.Net, reconstructed)
	assert.True(t, final.RoundOff.Abs().LessThanOrEqual(d("0.005")))
}

func TestTotals_FinalizeHalfUp(t *testing.T) {
	totals := Totals{Gross: d("10.005"), Discount: d("0"), Tax: d("0")}
	final := totals.Finalize()
	assert.True(t, final.Net.Equal(d("10.01")))
	assert.True(t, final.RoundOff.Equal(d("0.005")))
}

func TestDerivePaymentStatus(t *testing.T) {
	tests := []struct {
		net, paid   string
		status      PaymentStatus
		outstanding string
	}{
		{"100", "0", PaymentCredit, "100"},
		{"100", "40", PaymentPartial, "60"},
		{"100", "100", PaymentPaid, "0"},
		{"100", "120", PaymentPaid, "0"},
		{"0", "0", PaymentPaid, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.net+"/"+tt.paid, func(t *testing.T) {
			status, outstanding := DerivePaymentStatus(d(tt.net), d(tt.paid))
			assert.Equal(t, tt.status, status)
			assert.True(t, outstanding.Equal(d(tt.outstanding)))
		})
	}
}

func TestInvoice_Transitions(t *testing.T) {
	inv := NewInvoice("INV-00001", id.New(), "walk-in")
	assert.True(t, inv.CanTransition(StatusPosted))
	assert.False(t, inv.CanTransition(StatusCancelled))

	require.Error(t, inv.MarkCancelled(nil, inv.CreatedAt))
	require.NoError(t, inv.MarkPosted(nil, inv.CreatedAt))
	assert.Equal(t, StatusPosted, inv.Status)
	assert.NotNil(t, inv.PostedAt)
	assert.Equal(t, 2, inv.Version)

	require.Error(t, inv.MarkPosted(nil, inv.CreatedAt))
	require.NoError(t, inv.MarkCancelled(nil, inv.CreatedAt))
	assert.False(t, inv.CanTransition(StatusPosted))
	assert.False(t, inv.CanTransition(StatusCancelled))
}

func TestSplitDiscount(t *testing.T) {
	allocs := []inventory.Allocation{{Qty: d("1")}, {Qty: d("1")}, {Qty: d("1")}}
	parts := splitDiscount(d("10"), d("3"), allocs)
	require.Len(t, parts, 3)
	assert.True(t, parts[0].Equal(d("3.3333")))
	assert.True(t, parts[1].Equal(d("3.3333")))
	assert.True(t, parts[2].Equal(d("3.3334")))

	assert.Empty(t, splitDiscount(d("10"), d("3"), nil))
}

func TestTakeAllocations(t *testing.T) {
	a, b := id.New(), id.New()
	pool := []inventory.Allocation{{BatchID: a, Qty: d("5")}, {BatchID: b, Qty: d("2")}}

	taken, pool := takeAllocations(pool, d("3"))
	require.Len(t, taken, 1)
	assert.Equal(t, a, taken[0].BatchID)
	assert.True(t, taken[0].Qty.Equal(d("3")))

	taken, pool = takeAllocations(pool, d("4"))
	require.Len(t, taken, 2)
	assert.True(t, taken[0].Qty.Equal(d("2")))
	assert.Equal(t, b, taken[1].BatchID)
	assert.True(t, taken[1].Qty.Equal(d("2")))
	assert.Empty(t, pool)
}

func TestDraft_Validate(t *testing.T) {
	loc := id.New()
	neg := d("-1")
	tests := []struct {
		name  string
		draft Draft
		ok    bool
	}{
		{"valid", Draft{LocationID: loc, Lines: []DraftLine{{ProductID: id.New(), Qty: d("1"), RatePerBase: d("1")}}}, true},
		{"empty draft is allowed", Draft{LocationID: loc}, true},
		{"missing location", Draft{}, false},
		{"missing product", Draft{LocationID: loc, Lines: []DraftLine{{Qty: d("1")}}}, false},
		{"zero qty", Draft{LocationID: loc, Lines: []DraftLine{{ProductID: id.New(), Qty: d("0")}}}, false},
		{"lowercase pack", Draft{LocationID: loc, Lines: []DraftLine{{ProductID: id.New(), Qty: d("1"), UOM: "pack"}}}, true},
		{"lowercase base", Draft{LocationID: loc, Lines: []DraftLine{{ProductID: id.New(), Qty: d("1"), UOM: "base"}}}, true},
		{"bad uom", Draft{LocationID: loc, Lines: []DraftLine{{ProductID: id.New(), Qty: d("1"), UOM: "BOX"}}}, false},
		{"negative tax", Draft{LocationID: loc, Lines: []DraftLine{{ProductID: id.New(), Qty: d("1"), TaxPercent: &neg}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
