package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmaerp/internal/core/id"
)

func TestBaseEntity_Touch(t *testing.T) {
	b := NewBaseEntity()
	assert.False(t, id.IsNil(b.ID))
	assert.Equal(t, 1, b.Version)

	created := b.UpdatedAt
	b.Touch()
	assert.Equal(t, 2, b.Version)
	assert.False(t, b.UpdatedAt.Before(created))
}
