package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/testutil/memstore"
)

func TestGetOrCreateBatch(t *testing.T) {
	store := memstore.New()
	svc := catalog.NewService(store.Catalog())
	product := store.AddProduct(memstore.NewProduct("CTZ10", catalog.ScheduleOTC, "12"))
	ctx := context.Background()
	expiry := time.Date(2029, 6, 30, 0, 0, 0, 0, time.UTC)

	created, isNew, err := svc.GetOrCreateBatch(ctx, product.ID, " L-77 ", nil, expiry)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "L-77", created.BatchNo)
	assert.Equal(t, catalog.BatchActive, created.Status)

	again, isNew, err := svc.GetOrCreateBatch(ctx, product.ID, "L-77", nil, expiry.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, again.ID)
	assert.True(t, again.ExpiryDate.Equal(expiry), "stored dates win")

	_, _, err = svc.GetOrCreateBatch(ctx, product.ID, "", nil, expiry)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	_, _, err = svc.GetOrCreateBatch(ctx, product.ID, "L-78", nil, time.Time{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestProductsAndBatches_MissingIDs(t *testing.T) {
	store := memstore.New()
	svc := catalog.NewService(store.Catalog())
	product := store.AddProduct(memstore.NewProduct("CTZ10", catalog.ScheduleOTC, "12"))
	ctx := context.Background()

	got, err := svc.Products(ctx, []id.ID{product.ID})
	require.NoError(t, err)
	assert.Contains(t, got, product.ID)

	_, err = svc.Products(ctx, []id.ID{product.ID, id.New()})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.Batches(ctx, []id.ID{id.New()})
	assert.True(t, apperror.IsNotFound(err))
}

func TestSetBatchStatus(t *testing.T) {
	store := memstore.New()
	svc := catalog.NewService(store.Catalog())
	product := store.AddProduct(memstore.NewProduct("CTZ10", catalog.ScheduleOTC, "12"))
	batch := store.AddBatch(product.ID, "B", time.Now().AddDate(1, 0, 0))
	ctx := context.Background()

	require.NoError(t, svc.SetBatchStatus(ctx, batch.ID, catalog.BatchBlocked))
	stored, err := store.Catalog().GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.BatchBlocked, stored.Status)
	assert.Error(t, stored.Sellable(time.Now()))

	assert.True(t, apperror.HasCode(svc.SetBatchStatus(ctx, batch.ID, "LOST"), apperror.CodeValidation))
	assert.True(t, apperror.IsNotFound(svc.SetBatchStatus(ctx, id.New(), catalog.BatchActive)))
}
