package dto

import "pharmaerp/internal/domain/catalog"

// UpdateBatchStatusRequest blocks, exhausts or reactivates a batch.
type UpdateBatchStatusRequest struct {
	Status catalog.BatchStatus `json:"status" binding:"required,oneof=ACTIVE BLOCKED EXHAUSTED"`
}
