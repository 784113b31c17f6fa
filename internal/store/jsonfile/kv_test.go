package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV_FileLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "local.json")
	store := NewKV(path)

	require.NoError(t, store.Set(ctx, "tasks_alice", []string{"a"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var file File
	require.NoError(t, json.Unmarshal(data, &file))
	require.Contains(t, file.Entries, "tasks_alice")
	assert.JSONEq(t, `["a"]`, string(file.Entries["tasks_alice"].Value))

	assert.NoFileExists(t, path+".tmp")
}

func TestKV_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewKV(path)

	_, err := store.ListKeys(ctx)
	require.Error(t, err)

	err = store.Set(ctx, "k", "v")
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data), "a failed write must not replace the file")
}

func TestKV_EmptyFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	keys, err := NewKV(path).ListKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKV_SharedFileAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.json")

	a := NewKV(path)
	b := NewKV(path)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store := a
			if i%2 == 1 {
				store = b
			}
			assert.NoError(t, store.Set(ctx, fmt.Sprintf("key-%02d", i), i))
		}(i)
	}
	wg.Wait()

	keys, err := a.ListKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 20, "no write may be lost between instances")
}

func TestKV_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	holder := NewKV(path)
	require.NoError(t, holder.Set(context.Background(), "seed", 1))

	locked, err := holder.lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = holder.lock.Unlock() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewKV(path).Set(ctx, "blocked", 2)
	assert.Error(t, err)
}

func TestKV_SweepExpired(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.json")
	store := NewKV(path)

	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.SetTTL(ctx, "cache", "v", time.Minute))
	require.NoError(t, store.Set(ctx, "tasks_alice", []string{}))

	now = now.Add(2 * time.Minute)
	require.NoError(t, store.SweepExpired(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var file File
	require.NoError(t, json.Unmarshal(data, &file))
	assert.NotContains(t, file.Entries, "cache")
	assert.Contains(t, file.Entries, "tasks_alice")
}
