// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
)

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// parseID parses a required id field and names the field on failure.
func parseID(field, raw string) (id.ID, error) {
	v, err := id.Parse(raw)
	if err != nil || id.IsNil(v) {
		return id.ID{}, apperror.NewValidation("invalid " + field).WithDetail("field", field)
	}
	return v, nil
}

// parseOptionalID parses an optional id field; empty means absent.
func parseOptionalID(field string, raw *string) (*id.ID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := parseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
