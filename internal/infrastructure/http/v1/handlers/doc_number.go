package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/numerator"
	"pharmaerp/internal/infrastructure/http/v1/dto"
)

// DocNumberHandler issues document numbers.
type DocNumberHandler struct {
	*BaseHandler
	numerator numerator.Generator
}

// NewDocNumberHandler creates a new document number handler.
func NewDocNumberHandler(base *BaseHandler, gen numerator.Generator) *DocNumberHandler {
	return &DocNumberHandler{BaseHandler: base, numerator: gen}
}

// Next issues the next number for a document type.
// POST /api/v1/doc-numbers/:type/next
func (h *DocNumberHandler) Next(c *gin.Context) {
	docType := strings.ToUpper(strings.TrimSpace(c.Param("type")))
	if docType == "" {
		h.Error(c, apperror.NewValidation("document type is required"))
		return
	}

	var req dto.NextDocNumberRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	cfg := numerator.Config{DocumentType: docType, Prefix: req.Prefix, Padding: req.Padding}
	number, err := h.numerator.NextDocNumber(c.Request.Context(), cfg)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DocNumberResponse{DocumentType: docType, Number: number})
}
