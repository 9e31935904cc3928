package register_repo

import (
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/compliance"
	"pharmaerp/internal/domain/inventory"
)

func TestMovementColumnsMatchValues(t *testing.T) {
	m := inventory.NewMovement(id.New(), id.New(), types.MustDecimal("-4"), inventory.ReasonSale, inventory.RefSalesInvoice, id.New())

	assert.Equal(t, []string{
		"id", "location_id", "batch_id", "qty_change_base", "reason", "ref_doc_type", "ref_doc_id", "created_at",
	}, movementColumns)
	vals := movementValues(m)
	require.Len(t, vals, len(movementColumns))
	assert.Equal(t, inventory.ReasonSale, vals[4])
}

func TestSumByProductQuery(t *testing.T) {
	r := NewLedgerRepo(nil)
	productID, locationID := id.New(), id.New()

	sql, args, err := r.sumQuery(squirrel.Eq{"m.location_id": locationID, "b.product_id": productID}).
		Join(batchesTable + " b ON b.id = m.batch_id").
		ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT COALESCE(SUM(m.qty_change_base), 0) FROM inventory_movements m JOIN batch_lots b ON b.id = m.batch_id WHERE b.product_id = $1 AND m.location_id = $2",
		sql)
	assert.Equal(t, []any{productID, locationID}, args)
}

func TestComplianceInsertQuery(t *testing.T) {
	r := NewComplianceRepo(nil)
	entries := []compliance.Entry{
		{ID: id.New(), Register: compliance.RegisterH1, QtyBase: types.MustDecimal("2")},
		{ID: id.New(), Register: compliance.RegisterNDPS, QtyBase: types.MustDecimal("1")},
	}

	sql, args, err := r.insertQuery(entries).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "INSERT INTO compliance_register (id,invoice_id,line_id,product_id,batch_id,schedule,register,qty_base,prescription_id,created_at) VALUES"))
	assert.Len(t, args, 2*len(complianceColumns))
}
