package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/backlog/internal/core/kv"
	"github.com/colonyops/backlog/internal/data/db"
	"github.com/colonyops/backlog/internal/data/stores"
	"github.com/colonyops/backlog/internal/store/jsonfile"
)

type backend struct {
	name string
	open func(t *testing.T) kv.KV
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) kv.KV { return kv.NewMemory() }},
		{"sqlite", func(t *testing.T) kv.KV {
			t.Helper()
			database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
			require.NoError(t, err)
			t.Cleanup(func() { _ = database.Close() })
			return stores.NewKVStore(database)
		}},
		{"jsonfile", func(t *testing.T) kv.KV {
			return jsonfile.NewKV(t.TempDir() + "/local.json")
		}},
	}
}

func TestUserKey(t *testing.T) {
	assert.Equal(t, "sprints_alice", kv.UserKey("sprints", "alice"))
	assert.Equal(t, "productBacklog_u-42", kv.UserKey("productBacklog", "u-42"))
}

func TestCollection_LoadMissing(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			col := kv.UserCollection[string](b.open(t), "tasks", "alice")

			items, err := col.Load(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Empty(t, items)
		})
	}
}

func TestCollection_SaveAndLoad(t *testing.T) {
	type item struct {
		ID   string `json:"id"`
		Rank int    `json:"rank"`
	}

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			col := kv.UserCollection[item](b.open(t), "tasks", "alice")

			require.NoError(t, col.Save(ctx, []item{{"a", 1}, {"b", 2}}))

			got, err := col.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []item{{"a", 1}, {"b", 2}}, got)

			require.NoError(t, col.Save(ctx, nil))
			got, err = col.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestCollection_UsersAreIsolated(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)

			alice := kv.UserCollection[string](store, "sprints", "alice")
			bob := kv.UserCollection[string](store, "sprints", "bob")

			require.NoError(t, alice.Save(ctx, []string{"s1"}))
			require.NoError(t, bob.Save(ctx, []string{"s2", "s3"}))

			a, err := alice.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"s1"}, a)

			bb, err := bob.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"s2", "s3"}, bb)

			keys, err := store.ListKeys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"sprints_alice", "sprints_bob"}, keys)
		})
	}
}

func TestCollection_Init(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)
			col := kv.UserCollection[string](store, "productBacklog", "alice")

			require.NoError(t, col.Init(ctx))
			ok, err := store.Has(ctx, "productBacklog_alice")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, col.Save(ctx, []string{"keep"}))
			require.NoError(t, col.Init(ctx))

			got, err := col.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"keep"}, got, "init must not clobber existing data")
		})
	}
}

func TestKV_GetNotFound(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			var v string
			err := b.open(t).Get(context.Background(), "nope", &v)
			assert.ErrorIs(t, err, kv.ErrNotFound)
		})
	}
}

func TestKV_TTLExpiry(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)

			require.NoError(t, store.SetTTL(ctx, "short", "v", time.Millisecond))
			time.Sleep(10 * time.Millisecond)

			ok, err := store.Has(ctx, "short")
			require.NoError(t, err)
			assert.False(t, ok)

			var v string
			assert.ErrorIs(t, store.Get(ctx, "short", &v), kv.ErrNotFound)
		})
	}
}

func TestKV_GetRawMetadata(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)

			require.NoError(t, store.Set(ctx, "k", map[string]int{"n": 1}))
			entry, err := store.GetRaw(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "k", entry.Key)
			assert.JSONEq(t, `{"n":1}`, string(entry.Value))
			assert.Nil(t, entry.ExpiresAt)
			assert.False(t, entry.CreatedAt.IsZero())

			require.NoError(t, store.Delete(ctx, "k"))
			_, err = store.GetRaw(ctx, "k")
			assert.ErrorIs(t, err, kv.ErrNotFound)
		})
	}
}
