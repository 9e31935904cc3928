package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaerp/internal/domain/transfer"
	"pharmaerp/internal/infrastructure/http/v1/dto"
)

// TransferHandler posts stock transfers.
type TransferHandler struct {
	*BaseHandler
	service *transfer.Service
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfer.Service) *TransferHandler {
	return &TransferHandler{BaseHandler: base, service: service}
}

// Create moves batches from one location to another.
// POST /api/v1/transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToTransfer()
	if err != nil {
		h.Error(c, err)
		return
	}
	st, err := h.service.PostTransfer(c.Request.Context(), h.Actor(c), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, st)
}
