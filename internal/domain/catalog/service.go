package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/pkg/logger"
)

// Service provides catalog lookups and batch registration.
type Service struct {
	repo Repository
}

// NewService creates a new catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Product returns a product by id.
func (s *Service) Product(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetProduct(ctx, productID)
}

// Products returns all requested products or NotFound for the first missing one.
func (s *Service) Products(ctx context.Context, productIDs []id.ID) (map[id.ID]*Product, error) {
	products, err := s.repo.GetProducts(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	for _, pid := range productIDs {
		if _, ok := products[pid]; !ok {
			return nil, apperror.NewNotFound("product", pid.String())
		}
	}
	return products, nil
}

// Batch returns a batch by id.
func (s *Service) Batch(ctx context.Context, batchID id.ID) (*BatchLot, error) {
	return s.repo.GetBatch(ctx, batchID)
}

// Batches returns all requested batches or NotFound for the first missing one.
func (s *Service) Batches(ctx context.Context, batchIDs []id.ID) (map[id.ID]*BatchLot, error) {
	batches, err := s.repo.GetBatches(ctx, batchIDs)
	if err != nil {
		return nil, fmt.Errorf("get batches: %w", err)
	}
	for _, bid := range batchIDs {
		if _, ok := batches[bid]; !ok {
			return nil, apperror.NewNotFound("batch", bid.String())
		}
	}
	return batches, nil
}

// GetOrCreateBatch returns the product's batch with batchNo, creating it on first receipt.
// An existing batch keeps its dates; a mismatching expiry is only logged.
func (s *Service) GetOrCreateBatch(ctx context.Context, productID id.ID, batchNo string, mfg *time.Time, expiry time.Time) (*BatchLot, bool, error) {
	batchNo = strings.TrimSpace(batchNo)
	if batchNo == "" {
		return nil, false, apperror.NewValidation("batch number is required")
	}
	if expiry.IsZero() {
		return nil, false, apperror.NewValidation("expiry date is required").
			WithDetail("batch_no", batchNo)
	}

	existing, err := s.repo.FindBatch(ctx, productID, batchNo)
	if err == nil {
		if !existing.ExpiryDate.Equal(expiry) {
			logger.Warn(ctx, "receipt expiry differs from stored batch",
				"batch_id", existing.ID,
				"stored", existing.ExpiryDate,
				"received", expiry,
			)
		}
		return existing, false, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, false, fmt.Errorf("find batch: %w", err)
	}

	batch := NewBatchLot(productID, batchNo, mfg, expiry)
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, false, fmt.Errorf("create batch: %w", err)
	}

	logger.Info(ctx, "batch created",
		"batch_id", batch.ID,
		"product_id", productID,
		"batch_no", batchNo,
	)
	return batch, true, nil
}

// SetBatchStatus blocks, exhausts or reactivates a batch.
func (s *Service) SetBatchStatus(ctx context.Context, batchID id.ID, status BatchStatus) error {
	switch status {
	case BatchActive, BatchBlocked, BatchExhausted:
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown batch status %q", status))
	}
	if err := s.repo.UpdateBatchStatus(ctx, batchID, status); err != nil {
		return err
	}
	logger.Info(ctx, "batch status changed", "batch_id", batchID, "status", status)
	return nil
}
