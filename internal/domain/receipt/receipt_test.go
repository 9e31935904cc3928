package receipt_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/identity"
	"pharmaerp/internal/core/numerator"
	"pharmaerp/internal/domain/audit"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/inventory"
	"pharmaerp/internal/domain/receipt"
	"pharmaerp/internal/testutil/memstore"
)

func setup() (*memstore.Store, *receipt.Service) {
	store := memstore.New()
	svc := receipt.NewService(
		store.Receipts(),
		store.TxManager(),
		catalog.NewService(store.Catalog()),
		inventory.NewLedger(store.Ledger()),
		&numerator.MockGenerator{},
		audit.NewRecorder(store.Audit()),
	)
	return store, svc
}

func TestReceiveStock(t *testing.T) {
	store, svc := setup()
	product := store.AddProduct(memstore.NewProduct("PCM500", catalog.ScheduleOTC, "12"))
	location := id.New()
	expiry := time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC)

	grn, err := svc.ReceiveStock(context.Background(), identity.Verified(id.New(), "store"), receipt.Receipt{
		LocationID:   location,
		SupplierName: "  Acme Pharma ",
		Lines: []receipt.Line{
			{ProductID: product.ID, BatchNo: "B1", ExpiryDate: expiry, Unit: "pack", Qty: decimal.NewFromInt(3)},
			{ProductID: product.ID, BatchNo: "B1", ExpiryDate: expiry, Qty: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "GRN-00001", grn.ReceiptNo)
	assert.Equal(t, "Acme Pharma", grn.SupplierName)
	require.Len(t, grn.Lines, 2)
	assert.Equal(t, grn.Lines[0].BatchID, grn.Lines[1].BatchID, "same batch number reuses the batch")
	assert.True(t, grn.Lines[0].QtyBase.Equal(decimal.NewFromInt(30)))

	assert.True(t, store.OnHand(location, grn.Lines[0].BatchID).Equal(decimal.NewFromInt(35)))
	for _, m := range store.Movements(grn.ID) {
		assert.Equal(t, inventory.ReasonPurchase, m.Reason)
	}

	stored, err := store.Receipts().Get(grn.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)

	logs := store.AuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, audit.ActionReceive, logs[0].Action)
}

func TestReceiveStock_RollsBackOnLedgerFailure(t *testing.T) {
	store, svc := setup()
	product := store.AddProduct(memstore.NewProduct("PCM500", catalog.ScheduleOTC, "12"))
	store.InjectFault(memstore.FaultLedgerInsert, errors.New("disk full"))

	grn, err := svc.ReceiveStock(context.Background(), nil, receipt.Receipt{
		LocationID: id.New(),
		Lines: []receipt.Line{
			{ProductID: product.ID, BatchNo: "B9", ExpiryDate: time.Now().AddDate(1, 0, 0), Qty: decimal.NewFromInt(1)},
		},
	})
	require.Error(t, err)
	assert.Nil(t, grn)

	_, err = store.Catalog().FindBatch(context.Background(), product.ID, "B9")
	assert.True(t, apperror.IsNotFound(err), "batch creation is rolled back")
	assert.Zero(t, store.MovementCount())
}

func TestReceiveStock_Validation(t *testing.T) {
	store, svc := setup()
	ctx := context.Background()

	_, err := svc.ReceiveStock(ctx, nil, receipt.Receipt{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.ReceiveStock(ctx, nil, receipt.Receipt{
		LocationID: id.New(),
		Lines:      []receipt.Line{{ProductID: id.New(), Qty: decimal.NewFromInt(1), Unit: "box"}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.ReceiveStock(ctx, nil, receipt.Receipt{
		LocationID: id.New(),
		Lines:      []receipt.Line{{ProductID: id.New(), BatchNo: "X", ExpiryDate: time.Now(), Qty: decimal.NewFromInt(1)}},
	})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.ReceiveStock(ctx, nil, receipt.Receipt{
		LocationID: id.New(),
		Lines:      []receipt.Line{{ProductID: id.New(), BatchNo: "X", ExpiryDate: time.Now().AddDate(1, 0, 0), Qty: decimal.Zero}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Zero(t, store.MovementCount(), "zero quantity never reaches the ledger")
}
