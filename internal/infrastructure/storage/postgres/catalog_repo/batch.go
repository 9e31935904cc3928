package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/catalog"
)

// GetBatch retrieves a batch lot by ID.
func (r *Repo) GetBatch(ctx context.Context, batchID id.ID) (*catalog.BatchLot, error) {
	return r.batches.getOne(ctx, squirrel.Eq{"id": batchID}, batchID.String())
}

// GetBatches retrieves batch lots by IDs.
func (r *Repo) GetBatches(ctx context.Context, batchIDs []id.ID) (map[id.ID]*catalog.BatchLot, error) {
	rows, err := r.batches.getMany(ctx, batchIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[id.ID]*catalog.BatchLot, len(rows))
	for _, b := range rows {
		out[b.ID] = b
	}
	return out, nil
}

// FindBatch looks up a batch by its natural key.
func (r *Repo) FindBatch(ctx context.Context, productID id.ID, batchNo string) (*catalog.BatchLot, error) {
	return r.batches.getOne(ctx, squirrel.Eq{"product_id": productID, "batch_no": batchNo}, batchNo)
}

// CreateBatch inserts a new batch lot.
func (r *Repo) CreateBatch(ctx context.Context, batch *catalog.BatchLot) error {
	return r.batches.insert(ctx, batch)
}

// UpdateBatchStatus changes the lifecycle status of a batch.
func (r *Repo) UpdateBatchStatus(ctx context.Context, batchID id.ID, status catalog.BatchStatus) error {
	sql, args, err := r.batches.Builder().
		Update(batchesTable).
		Set("status", status).
		Where(squirrel.Eq{"id": batchID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.batches.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}
	return nil
}
