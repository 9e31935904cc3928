package transfer_test

import (
	"context"
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
	"pharmaerp/internal/domain/transfer"
	"pharmaerp/internal/testutil/memstore"
)

type env struct {
	store    *memstore.Store
	svc      *transfer.Service
	from, to id.ID
	batch    *catalog.BatchLot
}

func setup(t *testing.T) env {
	t.Helper()
	store := memstore.New()
	svc := transfer.NewService(
		store.Transfers(),
		store.TxManager(),
		inventory.NewLedger(store.Ledger()),
		catalog.NewService(store.Catalog()),
		&numerator.MockGenerator{},
		audit.NewRecorder(store.Audit()),
	)
	product := store.AddProduct(memstore.NewProduct("ORS", catalog.ScheduleOTC, "5"))
	e := env{store: store, svc: svc, from: id.New(), to: id.New()}
	e.batch = store.AddBatch(product.ID, "T1", time.Now().AddDate(1, 0, 0))
	store.Receive(e.from, e.batch.ID, 40)
	return e
}

func TestPostTransfer_MovesStock(t *testing.T) {
	e := setup(t)

	doc, err := e.svc.PostTransfer(context.Background(), identity.Verified(id.New(), "manager"), transfer.Transfer{
		FromLocationID: e.from,
		ToLocationID:   e.to,
		Lines: []transfer.Line{
			{BatchID: e.batch.ID, QtyBase: decimal.NewFromInt(15)},
			{BatchID: e.batch.ID, QtyBase: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "TR-00001", doc.TransferNo)
	assert.True(t, e.store.OnHand(e.from, e.batch.ID).Equal(decimal.NewFromInt(20)))
	assert.True(t, e.store.OnHand(e.to, e.batch.ID).Equal(decimal.NewFromInt(20)))
	assert.Len(t, e.store.Movements(doc.ID), 4)
	assert.Equal(t, 1, e.store.Transfers().Count())
}

func TestPostTransfer_InsufficientStock(t *testing.T) {
	e := setup(t)

	_, err := e.svc.PostTransfer(context.Background(), nil, transfer.Transfer{
		FromLocationID: e.from,
		ToLocationID:   e.to,
		Lines: []transfer.Line{
			{BatchID: e.batch.ID, QtyBase: decimal.NewFromInt(30)},
			{BatchID: e.batch.ID, QtyBase: decimal.NewFromInt(11)},
		},
	})
	require.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.True(t, e.store.OnHand(e.from, e.batch.ID).Equal(decimal.NewFromInt(40)))
	assert.Zero(t, e.store.Transfers().Count())
}

func TestPostTransfer_Validation(t *testing.T) {
	e := setup(t)

	_, err := e.svc.PostTransfer(context.Background(), nil, transfer.Transfer{
		FromLocationID: e.from,
		ToLocationID:   e.from,
		Lines:          []transfer.Line{{BatchID: e.batch.ID, QtyBase: decimal.NewFromInt(1)}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = e.svc.PostTransfer(context.Background(), nil, transfer.Transfer{
		FromLocationID: e.from,
		ToLocationID:   e.to,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	before := e.store.MovementCount()
	_, err = e.svc.PostTransfer(context.Background(), nil, transfer.Transfer{
		FromLocationID: e.from,
		ToLocationID:   e.to,
		Lines:          []transfer.Line{{BatchID: e.batch.ID, QtyBase: decimal.Zero}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Equal(t, before, e.store.MovementCount(), "zero quantity never reaches the ledger")
}
