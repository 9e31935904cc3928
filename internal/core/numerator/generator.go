// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
)

// Generator issues sequential document numbers.
// This is the domain contract - implementations live in infrastructure layer.
//
// Numbers for one document type are strictly increasing and never reissued,
// even when the caller's own transaction later fails.
type Generator interface {
	// NextDocNumber returns the formatted next number and advances the counter.
	// A missing counter row is created on first use.
	NextDocNumber(ctx context.Context, cfg Config) (string, error)
}
