package stores

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/backlog/internal/core/kv"
	"github.com/colonyops/backlog/internal/data/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func newTestKVStore(t *testing.T) *KVStore {
	t.Helper()
	return NewKVStore(openTestDB(t))
}

func TestKVStore_SetOverwriteKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTestKVStore(t)

	require.NoError(t, store.Set(ctx, "key", "first"))
	first, err := store.GetRaw(ctx, "key")
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Set(ctx, "key", "second"))

	var got string
	require.NoError(t, store.Get(ctx, "key", &got))
	assert.Equal(t, "second", got)

	second, err := store.GetRaw(ctx, "key")
	require.NoError(t, err)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestKVStore_TTLNotExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestKVStore(t)

	require.NoError(t, store.SetTTL(ctx, "alive", "here", time.Hour))

	var got string
	require.NoError(t, store.Get(ctx, "alive", &got))
	assert.Equal(t, "here", got)

	entry, err := store.GetRaw(ctx, "alive")
	require.NoError(t, err)
	assert.NotNil(t, entry.ExpiresAt)
}

func TestKVStore_SweepExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestKVStore(t)

	require.NoError(t, store.Set(ctx, "permanent", "stays"))
	require.NoError(t, store.SetTTL(ctx, "expired", "goes", time.Millisecond))

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, store.SweepExpired(ctx))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"permanent"}, keys)

	_, err = store.GetRaw(ctx, "expired")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestKVStore_ExpiredCacheEntryReadsAsMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestKVStore(t)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "local:alice:tasks", []string{"t1"}))
	require.NoError(t, store.SetTTL(ctx, "update-check:latest", "v1.2.0", time.Hour))

	ok, err := store.Has(ctx, "update-check:latest")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)

	ok, err = store.Has(ctx, "update-check:latest")
	require.NoError(t, err)
	assert.False(t, ok)

	var release string
	assert.ErrorIs(t, store.Get(ctx, "update-check:latest", &release), kv.ErrNotFound)

	var tasks []string
	require.NoError(t, store.Get(ctx, "local:alice:tasks", &tasks))
	assert.Equal(t, []string{"t1"}, tasks, "board documents never expire")

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"local:alice:tasks"}, keys)
}

func TestKVStore_SetClearsTTL(t *testing.T) {
	ctx := context.Background()
	store := newTestKVStore(t)

	require.NoError(t, store.SetTTL(ctx, "key", "cached", time.Minute))
	require.NoError(t, store.Set(ctx, "key", "kept"))

	entry, err := store.GetRaw(ctx, "key")
	require.NoError(t, err)
	assert.Nil(t, entry.ExpiresAt)
}

func TestKVStore_MissingKey(t *testing.T) {
	ctx := context.Background()
	store := newTestKVStore(t)

	ok, err := store.Has(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.GetRaw(ctx, "nope")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestErrorClassifiers(t *testing.T) {
	assert.False(t, IsBusyError(errors.New("boom")))
	assert.False(t, IsCorruptionError(nil))
	assert.True(t, IsCorruptionError(errors.New("database disk image is malformed")))
	assert.False(t, IsNotFoundError(errors.New("boom")))
	assert.True(t, isUniqueConstraintError(errors.New("constraint failed: UNIQUE constraint failed: tasks.id")))
}

func TestRecoverFromCorruption(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, db.FileName)

	require.NoError(t, os.WriteFile(dbPath, []byte("not a database"), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("wal"), 0o644))

	backup, err := RecoverFromCorruption(dir)
	require.NoError(t, err)

	assert.NoFileExists(t, dbPath)
	assert.NoFileExists(t, dbPath+"-wal")
	assert.FileExists(t, backup)
	assert.FileExists(t, backup+"-wal")

	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	require.NoError(t, database.Close())
}

func TestRecoverFromCorruption_MissingFile(t *testing.T) {
	_, err := RecoverFromCorruption(t.TempDir())
	assert.NoError(t, err)
}
