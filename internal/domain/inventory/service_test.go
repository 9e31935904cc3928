package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/inventory"
	"pharmaerp/internal/testutil/memstore"
)

func TestLedger_StockOnHand(t *testing.T) {
	store := memstore.New()
	ledger := inventory.NewLedger(store.Ledger())
	ctx := context.Background()

	product := store.AddProduct(memstore.NewProduct("AMX250", catalog.ScheduleOTC, "5"))
	batch := store.AddBatch(product.ID, "B1", time.Now().AddDate(1, 0, 0))
	location := id.New()

	qty, err := ledger.StockOnHand(ctx, location, batch.ID)
	require.NoError(t, err)
	assert.True(t, qty.IsZero(), "no movements means zero")

	store.Receive(location, batch.ID, 40)
	require.NoError(t, ledger.WriteMovement(ctx, inventory.NewMovement(location, batch.ID,
		decimal.NewFromInt(-15), inventory.ReasonSale, inventory.RefSalesInvoice, id.New())))

	qty, err = ledger.StockOnHand(ctx, location, batch.ID)
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(25)))

	other, err := ledger.StockOnHand(ctx, id.New(), batch.ID)
	require.NoError(t, err)
	assert.True(t, other.IsZero(), "stock is per location")
}

func TestLedger_WriteMovementsStoresRowsAsGiven(t *testing.T) {
	store := memstore.New()
	ledger := inventory.NewLedger(store.Ledger())
	ctx := context.Background()
	location, batch, ref := id.New(), id.New(), id.New()

	require.NoError(t, ledger.WriteMovements(ctx, nil))
	assert.Zero(t, store.MovementCount())

	m := inventory.NewMovement(location, batch, decimal.RequireFromString("-2.5"), inventory.ReasonSale, inventory.RefSalesInvoice, ref)
	require.NoError(t, ledger.WriteMovements(ctx, []inventory.Movement{m}))

	moves, err := ledger.MovementsFor(ctx, inventory.RefSalesInvoice, ref)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, m.ID, moves[0].ID)
	assert.True(t, moves[0].QtyChangeBase.Equal(m.QtyChangeBase))
	assert.Equal(t, location, moves[0].LocationID)
}

func TestLedger_WriteMovementsRollsBackWithTransaction(t *testing.T) {
	store := memstore.New()
	ledger := inventory.NewLedger(store.Ledger())
	location, batch, ref := id.New(), id.New(), id.New()
	boom := errors.New("boom")

	err := store.TxManager().RunInTransaction(context.Background(), func(ctx context.Context) error {
		if err := ledger.WriteMovements(ctx, []inventory.Movement{
			inventory.NewMovement(location, batch, decimal.NewFromInt(-2), inventory.ReasonTransferOut, inventory.RefStockTransfer, ref),
			inventory.NewMovement(id.New(), batch, decimal.NewFromInt(2), inventory.ReasonTransferIn, inventory.RefStockTransfer, ref),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, store.MovementCount())
}

func TestLedger_InsertFailureIsWrapped(t *testing.T) {
	store := memstore.New()
	ledger := inventory.NewLedger(store.Ledger())
	boom := errors.New("copy failed")
	store.InjectFault(memstore.FaultLedgerInsert, boom)

	err := ledger.WriteMovement(context.Background(), inventory.NewMovement(id.New(), id.New(),
		decimal.NewFromInt(3), inventory.ReasonPurchase, inventory.RefGoodsReceipt, id.New()))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "insert movements")
}

func TestLedger_AvailableBatchesAndProductTotal(t *testing.T) {
	store := memstore.New()
	ledger := inventory.NewLedger(store.Ledger())
	ctx := context.Background()
	location := id.New()

	product := store.AddProduct(memstore.NewProduct("CTZ10", catalog.ScheduleOTC, "12"))
	active := store.AddBatch(product.ID, "A", time.Now().AddDate(0, 6, 0))
	store.AddBatch(product.ID, "E", time.Now().AddDate(0, 3, 0))
	store.Receive(location, active.ID, 12)

	stock, err := ledger.AvailableBatches(ctx, product.ID, location)
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, active.ID, stock[0].Batch.ID)
	assert.True(t, stock[0].Available.Equal(decimal.NewFromInt(12)))

	total, err := ledger.OnHandByProduct(ctx, product.ID, location)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(12)))
}

func TestLedger_MovementsFor(t *testing.T) {
	store := memstore.New()
	ledger := inventory.NewLedger(store.Ledger())
	ctx := context.Background()
	ref := id.New()

	require.NoError(t, ledger.WriteMovement(ctx, inventory.NewMovement(id.New(), id.New(),
		decimal.NewFromInt(-1), inventory.ReasonSale, inventory.RefSalesInvoice, ref)))

	moves, err := ledger.MovementsFor(ctx, inventory.RefSalesInvoice, ref)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, inventory.ReasonSale, moves[0].Reason)

	moves, err = ledger.MovementsFor(ctx, inventory.RefGoodsReceipt, ref)
	require.NoError(t, err)
	assert.Empty(t, moves)
}

func TestLedger_LockBatchesSkipsEmpty(t *testing.T) {
	store := memstore.New()
	ledger := inventory.NewLedger(store.Ledger())
	require.NoError(t, ledger.LockBatches(context.Background(), nil))
}
