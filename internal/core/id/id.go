// Package id provides UUIDv7 identifiers for stored records.
// UUIDv7 is time-ordered, so primary keys sort by creation time.
package id

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// ID is the identifier type shared by every record.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		// V7 only fails when the random source fails
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// SortedUnique returns the distinct non-nil ids in ascending byte order.
// Row locks are always taken in this order so concurrent lockers cannot deadlock.
func SortedUnique(ids []ID) []ID {
	seen := make(map[ID]struct{}, len(ids))
	out := make([]ID, 0, len(ids))
	for _, v := range ids {
		if IsNil(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
