package memstore

import (
	"context"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/catalog"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	s *Store
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// Catalog returns the catalog repository.
func (s *Store) Catalog() *CatalogRepo {
	return &CatalogRepo{s: s}
}

func (r *CatalogRepo) GetProduct(_ context.Context, productID id.ID) (*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	c := *p
	return &c, nil
}

func (r *CatalogRepo) GetProducts(_ context.Context, productIDs []id.ID) (map[id.ID]*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[id.ID]*catalog.Product, len(productIDs))
	for _, pid := range productIDs {
		if p, ok := r.s.products[pid]; ok {
			c := *p
			out[pid] = &c
		}
	}
	return out, nil
}

func (r *CatalogRepo) GetBatch(_ context.Context, batchID id.ID) (*catalog.BatchLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID.String())
	}
	c := *b
	return &c, nil
}

func (r *CatalogRepo) GetBatches(_ context.Context, batchIDs []id.ID) (map[id.ID]*catalog.BatchLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[id.ID]*catalog.BatchLot, len(batchIDs))
	for _, bid := range batchIDs {
		if b, ok := r.s.batches[bid]; ok {
			c := *b
			out[bid] = &c
		}
	}
	return out, nil
}

func (r *CatalogRepo) FindBatch(_ context.Context, productID id.ID, batchNo string) (*catalog.BatchLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.batches {
		if b.ProductID == productID && b.BatchNo == batchNo {
			c := *b
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("batch", batchNo)
}

func (r *CatalogRepo) CreateBatch(ctx context.Context, batch *catalog.BatchLot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.batches {
		if b.ProductID == batch.ProductID && b.BatchNo == batch.BatchNo {
			return apperror.NewDuplicate("batch", "batch_no", batch.BatchNo)
		}
	}
	c := *batch
	r.s.batches[batch.ID] = &c
	r.s.onRollback(ctx, func() { delete(r.s.batches, batch.ID) })
	return nil
}

func (r *CatalogRepo) UpdateBatchStatus(ctx context.Context, batchID id.ID, status catalog.BatchStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.batches[batchID]
	if !ok {
		return apperror.NewNotFound("batch", batchID.String())
	}
	prev := b.Status
	b.Status = status
	r.s.onRollback(ctx, func() { b.Status = prev })
	return nil
}
