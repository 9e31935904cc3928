// Package catalog holds products and the batch lots they are stocked in.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/entity"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
)

// Schedule is the regulatory class of a drug.
type Schedule string

const (
	ScheduleOTC  Schedule = "OTC"
	ScheduleH    Schedule = "H"
	ScheduleH1   Schedule = "H1"
	ScheduleNDPS Schedule = "NDPS"
	ScheduleX    Schedule = "X"
)

// IsControlled reports whether sale requires a prescription.
func (s Schedule) IsControlled() bool {
	switch s {
	case ScheduleH, ScheduleH1, ScheduleNDPS, ScheduleX:
		return true
	}
	return false
}

// RequiresRegister reports whether every sale must be written to a register.
func (s Schedule) RequiresRegister() bool {
	return s == ScheduleH1 || s == ScheduleNDPS
}

// Product is a sellable item. Stock is always counted in base units.
type Product struct {
	entity.BaseEntity

	Code     string   `db:"code" json:"code"`
	Name     string   `db:"name" json:"name"`
	Schedule Schedule `db:"schedule" json:"schedule"`

	// UnitsPerPack converts PACK quantities to base units
	UnitsPerPack decimal.Decimal `db:"units_per_pack" json:"unitsPerPack"`

	// BaseUnitStep is the smallest sellable base quantity (e.g. 1 tablet)
	BaseUnitStep decimal.Decimal `db:"base_unit_step" json:"baseUnitStep"`

	// TaxRate is a percentage (12 means 12%)
	TaxRate decimal.Decimal `db:"tax_rate" json:"taxRate"`

	// ReorderLevel in base units; zero means use the configured threshold
	ReorderLevel decimal.Decimal `db:"reorder_level" json:"reorderLevel"`
}

// Validate checks product invariants.
func (p *Product) Validate(_ context.Context) error {
	if strings.TrimSpace(p.Code) == "" {
		return apperror.NewValidation("product code is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("product name is required")
	}
	if !p.UnitsPerPack.IsPositive() {
		return apperror.NewValidation("units per pack must be positive").
			WithDetail("product_id", p.ID.String())
	}
	if p.TaxRate.IsNegative() {
		return apperror.NewValidation("tax rate cannot be negative").
			WithDetail("product_id", p.ID.String())
	}
	return nil
}

// PacksToBase converts a pack count to base units.
func (p *Product) PacksToBase(packs decimal.Decimal) decimal.Decimal {
	upp := p.UnitsPerPack
	if !upp.IsPositive() {
		upp = decimal.NewFromInt(1)
	}
	return packs.Mul(upp)
}

// ValidateBaseQty checks that qty is positive and a multiple of the base step.
func (p *Product) ValidateBaseQty(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("product_id", p.ID.String())
	}
	if !types.IsMultipleOf(qty, p.BaseUnitStep) {
		return apperror.NewValidation(fmt.Sprintf("quantity %s is not a multiple of %s", qty, p.BaseUnitStep)).
			WithDetail("product_id", p.ID.String())
	}
	return nil
}

// BatchStatus is the lifecycle state of a batch lot.
type BatchStatus string

const (
	BatchActive    BatchStatus = "ACTIVE"
	BatchBlocked   BatchStatus = "BLOCKED"
	BatchExhausted BatchStatus = "EXHAUSTED"
)

// BatchLot is a manufactured lot of a product. Batches are never deleted.
type BatchLot struct {
	ID         id.ID       `db:"id" json:"id"`
	ProductID  id.ID       `db:"product_id" json:"productId"`
	BatchNo    string      `db:"batch_no" json:"batchNo"`
	MfgDate    *time.Time  `db:"mfg_date" json:"mfgDate,omitempty"`
	ExpiryDate time.Time   `db:"expiry_date" json:"expiryDate"`
	Status     BatchStatus `db:"status" json:"status"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
}

// NewBatchLot creates an ACTIVE batch.
func NewBatchLot(productID id.ID, batchNo string, mfg *time.Time, expiry time.Time) *BatchLot {
	return &BatchLot{
		ID:         id.New(),
		ProductID:  productID,
		BatchNo:    strings.TrimSpace(batchNo),
		MfgDate:    mfg,
		ExpiryDate: expiry,
		Status:     BatchActive,
		CreatedAt:  time.Now().UTC(),
	}
}

// IsExpired reports whether the batch expiry date is before asOf's date.
// A batch is still sellable on its expiry day.
func (b *BatchLot) IsExpired(asOf time.Time) bool {
	return dateOnly(b.ExpiryDate).Before(dateOnly(asOf))
}

// DaysToExpiry returns whole days from asOf until expiry (negative once expired).
func (b *BatchLot) DaysToExpiry(asOf time.Time) int {
	return int(dateOnly(b.ExpiryDate).Sub(dateOnly(asOf)).Hours() / 24)
}

// Sellable returns nil when the batch can be sold on asOf.
func (b *BatchLot) Sellable(asOf time.Time) error {
	if b.Status != BatchActive {
		return apperror.NewBatchNotSellable(b.ID.String(), strings.ToLower(string(b.Status)))
	}
	if b.IsExpired(asOf) {
		return apperror.NewBatchNotSellable(b.ID.String(), "expired").
			WithDetail("expiry_date", b.ExpiryDate.Format(time.DateOnly))
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
