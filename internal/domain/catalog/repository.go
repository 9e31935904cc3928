package catalog

import (
	"context"

	"pharmaerp/internal/core/id"
)

// Repository defines persistence for products and batch lots.
type Repository interface {
	GetProduct(ctx context.Context, productID id.ID) (*Product, error)

	// GetProducts returns the products found; missing ids are simply absent
	GetProducts(ctx context.Context, productIDs []id.ID) (map[id.ID]*Product, error)

	GetBatch(ctx context.Context, batchID id.ID) (*BatchLot, error)
	GetBatches(ctx context.Context, batchIDs []id.ID) (map[id.ID]*BatchLot, error)

	// FindBatch returns NotFound when the product has no batch with that number
	FindBatch(ctx context.Context, productID id.ID, batchNo string) (*BatchLot, error)

	// CreateBatch must fail with a Duplicate error on (product_id, batch_no) collision
	CreateBatch(ctx context.Context, batch *BatchLot) error
	UpdateBatchStatus(ctx context.Context, batchID id.ID, status BatchStatus) error
}
