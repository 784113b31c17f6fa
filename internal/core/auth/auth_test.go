package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/backlog/internal/core/board"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()

	known := []board.User{{ID: "ada", Name: "Ada Lovelace"}}

	u, err := NewStatic("ada", known).CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.Name)

	u, err = NewStatic("bob", known).CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.ID)
	assert.Empty(t, u.Name)

	_, err = NewStatic("", known).CurrentUser(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()

	_, err := Require(ctx, nil)
	require.ErrorIs(t, err, ErrNoSession)

	u, err := Require(ctx, Static{User: board.User{ID: "bob"}})
	require.NoError(t, err)
	assert.Equal(t, "bob", u.ID)

	ctx = WithUser(ctx, board.User{ID: "carol"})
	u, err = Require(ctx, Static{User: board.User{ID: "bob"}})
	require.NoError(t, err)
	assert.Equal(t, "carol", u.ID, "context user wins")
}
