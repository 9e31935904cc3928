package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaerp/internal/core/id"
)

type stubResolver struct {
	known map[id.ID]bool
	err   error
}

func (s stubResolver) Exists(_ context.Context, userID id.ID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.known[userID], nil
}

func TestActor_Ref(t *testing.T) {
	uid := id.New()

	t.Run("nil actor", func(t *testing.T) {
		var a *Actor
		assert.Nil(t, a.Ref())
		assert.Equal(t, "system", a.Name())
	})

	t.Run("unverified actor", func(t *testing.T) {
		assert.Nil(t, Unverified(uid, "bob").Ref())
	})

	t.Run("verified actor", func(t *testing.T) {
		ref := Verified(uid, "alice").Ref()
		require.NotNil(t, ref)
		assert.Equal(t, uid, *ref)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	uid := id.New()

	t.Run("known user", func(t *testing.T) {
		a := Resolve(ctx, stubResolver{known: map[id.ID]bool{uid: true}}, uid, "alice")
		assert.True(t, a.IsVerified())
	})

	t.Run("unknown user", func(t *testing.T) {
		a := Resolve(ctx, stubResolver{known: map[id.ID]bool{}}, uid, "ghost")
		require.NotNil(t, a)
		assert.False(t, a.IsVerified())
	})

	t.Run("lookup error", func(t *testing.T) {
		a := Resolve(ctx, stubResolver{err: errors.New("db down")}, uid, "alice")
		assert.False(t, a.IsVerified())
	})

	t.Run("nil id", func(t *testing.T) {
		assert.Nil(t, Resolve(ctx, stubResolver{}, id.ID{}, ""))
	})
}
