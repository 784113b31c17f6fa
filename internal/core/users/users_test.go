package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/backlog/internal/core/board"
)

type brokenDirectory struct{}

func (brokenDirectory) Lookup(context.Context, []string) (map[string]board.User, error) {
	return nil, errors.New("directory offline")
}

func TestStatic_Lookup(t *testing.T) {
	dir := NewStatic([]board.User{
		{ID: "ada", Name: "Ada Lovelace"},
		{ID: "bob", Email: "bob@example.com"},
	})

	got, err := dir.Lookup(context.Background(), []string{"ada", "bob", "ghost"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Ada Lovelace", got["ada"].Name)
	assert.Equal(t, "bob", got["bob"].DisplayName())
	assert.Equal(t, Placeholder("ghost"), got["ghost"])
}

func TestStatic_All(t *testing.T) {
	dir := NewStatic([]board.User{{ID: "zed"}, {ID: "amy"}, {ID: "amy", Name: "Amy"}})

	all := dir.All()
	require.Len(t, all, 2)
	assert.Equal(t, "amy", all[0].ID)
	assert.Equal(t, "Amy", all[0].Name)
	assert.Equal(t, "zed", all[1].ID)
}

func TestDisplayNames(t *testing.T) {
	ctx := context.Background()
	dir := NewStatic([]board.User{{ID: "ada", Name: "Ada Lovelace"}})

	names, err := DisplayNames(ctx, dir, []string{"ghost", "ada"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost", "Ada Lovelace"}, names)

	names, err = DisplayNames(ctx, dir, nil)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = DisplayNames(ctx, brokenDirectory{}, []string{"ada"})
	assert.Error(t, err)
}
