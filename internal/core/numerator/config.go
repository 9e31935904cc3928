// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"fmt"
	"strings"
)

// Document types with a dedicated counter row.
const (
	DocInvoice  = "INVOICE"
	DocPO       = "PO"
	DocGRN      = "GRN"
	DocTransfer = "TRANSFER"
)

// DefaultPadding is the zero-padded width of a freshly created counter.
const DefaultPadding = 5

// Config selects the counter and optionally overrides its format.
type Config struct {
	// DocumentType is the counter key (e.g. "INVOICE")
	DocumentType string

	// Prefix overrides the stored prefix when non-empty
	Prefix string

	// Padding overrides the stored padding when non-nil
	Padding *int
}

// ForType returns a config that uses the stored prefix and padding.
func ForType(documentType string) Config {
	return Config{DocumentType: documentType}
}

// Normalize upper-cases and trims the document type.
func (c Config) Normalize() Config {
	c.DocumentType = strings.ToUpper(strings.TrimSpace(c.DocumentType))
	return c
}

// DefaultPrefix returns the prefix a new counter row starts with.
func DefaultPrefix(documentType string) string {
	switch documentType {
	case DocPO:
		return "PO-"
	case DocGRN:
		return "GRN-"
	case DocTransfer:
		return "TR-"
	case DocInvoice:
		return "INV-"
	default:
		return documentType + "-"
	}
}

// InitialPrefix is the prefix stored when the counter row is created.
func (c Config) InitialPrefix() string {
	if c.Prefix != "" {
		return c.Prefix
	}
	return DefaultPrefix(c.DocumentType)
}

// InitialPadding is the padding stored when the counter row is created.
func (c Config) InitialPadding() int {
	if c.Padding != nil {
		return *c.Padding
	}
	return DefaultPadding
}

// Resolve picks the effective prefix and padding given the stored values.
func (c Config) Resolve(storedPrefix string, storedPadding int) (string, int) {
	prefix := storedPrefix
	if c.Prefix != "" {
		prefix = c.Prefix
	}
	padding := storedPadding
	if c.Padding != nil {
		padding = *c.Padding
	}
	if padding < 0 {
		padding = 0
	}
	return prefix, padding
}

// Format renders {prefix}{number zero-padded to padding}.
func Format(prefix string, padding int, number int64) string {
	return fmt.Sprintf("%s%0*d", prefix, padding, number)
}
