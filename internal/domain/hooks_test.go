package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookRegistry_Run(t *testing.T) {
	ctx := context.Background()
	r := NewHookRegistry[*[]string]()

	r.On(BeforePost, func(_ context.Context, calls *[]string) error {
		*calls = append(*calls, "first")
		return nil
	})
	r.On(BeforePost, func(_ context.Context, calls *[]string) error {
		*calls = append(*calls, "second")
		return errors.New("stop")
	})
	r.On(BeforePost, func(_ context.Context, calls *[]string) error {
		*calls = append(*calls, "third")
		return nil
	})

	var calls []string
	err := r.Run(ctx, BeforePost, &calls)
	require.EqualError(t, err, "stop")
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, 3, r.Len(BeforePost))

	require.NoError(t, r.Run(ctx, AfterPost, &calls))
}
