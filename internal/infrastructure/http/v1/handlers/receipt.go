package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaerp/internal/domain/receipt"
	"pharmaerp/internal/infrastructure/http/v1/dto"
)

// ReceiptHandler books goods receipts.
type ReceiptHandler struct {
	*BaseHandler
	service *receipt.Service
}

// NewReceiptHandler creates a new receipt handler.
func NewReceiptHandler(base *BaseHandler, service *receipt.Service) *ReceiptHandler {
	return &ReceiptHandler{BaseHandler: base, service: service}
}

// Create registers received batches and adds their stock.
// POST /api/v1/receipts
func (h *ReceiptHandler) Create(c *gin.Context) {
	var req dto.CreateReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToReceipt()
	if err != nil {
		h.Error(c, err)
		return
	}
	grn, err := h.service.ReceiveStock(c.Request.Context(), h.Actor(c), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, grn)
}
