package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/sales"
)

func TestExtractDBColumns_EmbeddedEntity(t *testing.T) {
	cols := ExtractDBColumns[catalog.Product]()

	expectedCols := []string{
		"id", "version", "created_at", "updated_at",
		"code", "name", "schedule", "units_per_pack", "base_unit_step", "tax_rate", "reorder_level",
	}
	assert.Equal(t, expectedCols, cols)
}

func TestExtractDBColumns_SkipsIgnoredFields(t *testing.T) {
	cols := ExtractDBColumns[sales.Invoice]()

	assert.Contains(t, cols, "invoice_no")
	assert.Contains(t, cols, "round_off_amount")
	assert.NotContains(t, cols, "lines")
	assert.NotContains(t, cols, "-")
}

func TestStructToMap_EmbeddedEntity(t *testing.T) {
	inv := sales.NewInvoice("INV-00001", [16]byte{1}, "Walk-in")
	inv.NetTotal = decimal.RequireFromString("134.40")

	m := StructToMap(inv)

	assert.Equal(t, inv.ID, m["id"])
	assert.Equal(t, 1, m["version"])
	assert.Equal(t, "INV-00001", m["invoice_no"])
	assert.Equal(t, sales.StatusDraft, m["status"])
	assert.True(t, m["net_total"].(decimal.Decimal).Equal(inv.NetTotal))
	_, hasLines := m["lines"]
	assert.False(t, hasLines)

	assert.Nil(t, StructToMap(42))
}
