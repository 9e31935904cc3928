package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/infrastructure/storage/postgres"
)

const (
	productsTable = "products"
	batchesTable  = "batch_lots"
)

// Repo implements catalog.Repository over products and batch_lots.
type Repo struct {
	products baseRepo[catalog.Product]
	batches  baseRepo[catalog.BatchLot]
}

var _ catalog.Repository = (*Repo)(nil)

// NewRepo creates a new catalog repository.
func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{
		products: newBaseRepo[catalog.Product](txManager, productsTable, "product"),
		batches:  newBaseRepo[catalog.BatchLot](txManager, batchesTable, "batch"),
	}
}

// GetProduct retrieves a product by ID.
func (r *Repo) GetProduct(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	return r.products.getOne(ctx, squirrel.Eq{"id": productID}, productID.String())
}

// GetProducts retrieves products by IDs.
func (r *Repo) GetProducts(ctx context.Context, productIDs []id.ID) (map[id.ID]*catalog.Product, error) {
	rows, err := r.products.getMany(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[id.ID]*catalog.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}
