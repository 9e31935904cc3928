package inventory

import (
	"context"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
)

// Repository defines persistence for the stock ledger.
type Repository interface {
	// InsertMovements appends rows; it never updates or deletes
	InsertMovements(ctx context.Context, movements []Movement) error

	// SumQuantity returns the on-hand quantity of a batch at a location (zero when none)
	SumQuantity(ctx context.Context, locationID, batchID id.ID) (types.Quantity, error)

	// SumByProduct returns on-hand across all batches of a product at a location
	SumByProduct(ctx context.Context, productID, locationID id.ID) (types.Quantity, error)

	// LockBatches takes FOR UPDATE locks on batch rows in the given order
	LockBatches(ctx context.Context, batchIDs []id.ID) error

	// ListBatchStock returns ACTIVE batches of a product with positive stock at a location
	ListBatchStock(ctx context.Context, productID, locationID id.ID) ([]BatchStock, error)

	// ListMovementsByRef returns movements written for a document
	ListMovementsByRef(ctx context.Context, refDocType string, refDocID id.ID) ([]Movement, error)
}
