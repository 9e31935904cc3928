package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaerp/internal/domain/sales"
	"pharmaerp/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles HTTP requests for sales invoices.
type InvoiceHandler struct {
	*BaseHandler
	service *sales.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *sales.Service) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service}
}

// Create stores a draft invoice, or creates and posts it in one step.
// POST /api/v1/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	draft, err := req.ToDraft()
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.PostImmediately {
		result, err := h.service.CreateAndPost(ctx, h.Actor(c), draft)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.Created(c, result)
		return
	}

	inv, err := h.service.CreateInvoice(ctx, h.Actor(c), draft)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, inv)
}

// Get returns an invoice with lines and payments.
// GET /api/v1/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.ParamID(c)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}

// Post posts a draft invoice.
// POST /api/v1/invoices/:id/post
func (h *InvoiceHandler) Post(c *gin.Context) {
	invoiceID, ok := h.ParamID(c)
	if !ok {
		return
	}
	result, err := h.service.PostInvoice(c.Request.Context(), h.Actor(c), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Cancel cancels a posted invoice and restores its stock.
// POST /api/v1/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	invoiceID, ok := h.ParamID(c)
	if !ok {
		return
	}
	result, err := h.service.CancelInvoice(c.Request.Context(), h.Actor(c), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Delete removes a draft invoice.
// DELETE /api/v1/invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	invoiceID, ok := h.ParamID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(c.Request.Context(), h.Actor(c), invoiceID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// AddPayment records a payment against a posted invoice.
// POST /api/v1/invoices/:id/payments
func (h *InvoiceHandler) AddPayment(c *gin.Context) {
	invoiceID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.AddPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.AddPayment(c.Request.Context(), h.Actor(c), invoiceID, req.Amount, req.Mode)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Movements lists the stock movements an invoice wrote.
// GET /api/v1/invoices/:id/movements
func (h *InvoiceHandler) Movements(c *gin.Context) {
	invoiceID, ok := h.ParamID(c)
	if !ok {
		return
	}
	moves, err := h.service.InvoiceMovements(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.InvoiceMovementsResponse{InvoiceID: invoiceID, Movements: moves})
}

// History returns the invoice's audit trail.
// GET /api/v1/invoices/:id/audit?limit=50
func (h *InvoiceHandler) History(c *gin.Context) {
	invoiceID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var q dto.InvoiceHistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	entries, err := h.service.InvoiceHistory(c.Request.Context(), invoiceID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.InvoiceHistoryResponse{InvoiceID: invoiceID, Entries: entries})
}
