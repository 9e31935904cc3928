package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/infrastructure/http/v1/dto"
)

// BatchHandler manages batch lifecycle.
type BatchHandler struct {
	*BaseHandler
	catalog *catalog.Service
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(base *BaseHandler, service *catalog.Service) *BatchHandler {
	return &BatchHandler{BaseHandler: base, catalog: service}
}

// UpdateStatus blocks, exhausts or reactivates a batch and returns it.
// PATCH /api/v1/batches/:id/status
func (h *BatchHandler) UpdateStatus(c *gin.Context) {
	batchID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.UpdateBatchStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if err := h.catalog.SetBatchStatus(ctx, batchID, req.Status); err != nil {
		h.Error(c, err)
		return
	}
	batch, err := h.catalog.Batch(ctx, batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, batch)
}
