package document_repo

import (
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/sales"
)

func TestGetForUpdateNoWaitQuery(t *testing.T) {
	r := NewSalesInvoiceRepo(nil)
	invoiceID := id.New()

	sql, args, err := r.headerQuery(invoiceID).Suffix("FOR UPDATE NOWAIT").ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT id, version, created_at, updated_at, invoice_no,"))
	assert.True(t, strings.HasSuffix(sql, "FROM sales_invoices WHERE id = $1 FOR UPDATE NOWAIT"))
	assert.Equal(t, []any{invoiceID}, args)
}

func TestUpdateQuery_OptimisticVersion(t *testing.T) {
	r := NewSalesInvoiceRepo(nil)
	inv := sales.NewInvoice("INV-00007", id.New(), "Walk-in")
	inv.Touch()

	sql, args, err := r.updateQuery(inv).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "UPDATE sales_invoices SET "))
	assert.NotContains(t, sql, "invoice_no =")
	assert.NotContains(t, sql, "created_by =")
	assert.True(t, strings.HasSuffix(sql, "version = $"+strconv.Itoa(len(args)-2)+" WHERE id = $"+strconv.Itoa(len(args)-1)+" AND version = $"+strconv.Itoa(len(args))))
	assert.Equal(t, 2, args[len(args)-3])
	assert.Equal(t, inv.ID, args[len(args)-2])
	assert.Equal(t, 1, args[len(args)-1])
}

func TestLineAmountQueries(t *testing.T) {
	r := NewSalesInvoiceRepo(nil)
	lines := []sales.Line{
		{ID: id.New(), TaxAmount: decimal.NewNullDecimal(decimal.RequireFromString("14.4")), LineTotal: decimal.NewNullDecimal(decimal.RequireFromString("134.4"))},
		{ID: id.New()},
	}

	queries, err := r.lineAmountQueries(lines)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "UPDATE sales_invoice_lines SET tax_amount = $1, line_total = $2 WHERE id = $3", queries[0].SQL)
	assert.Equal(t, lines[1].ID, queries[1].Args[2])
}

func TestLineValuesMatchColumns(t *testing.T) {
	assert.Len(t, lineValues(sales.Line{}), len(lineColumns))
	assert.Equal(t, "tax_amount", lineColumns[10])
	assert.Equal(t, []string{"id", "receipt_id", "line_no", "product_id", "batch_id", "qty_base"}, receiptLineColumns)
	assert.Equal(t, []string{"id", "transfer_id", "line_no", "batch_id", "qty_base"}, transferLineColumns)
}
