package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, Notification) error { return f.err }

type memStore struct{ saved []Notification }

func (m *memStore) Save(_ context.Context, n Notification) (int64, error) {
	m.saved = append(m.saved, n)
	return int64(len(m.saved)), nil
}
func (m *memStore) List(context.Context, int) ([]Notification, error) { return m.saved, nil }
func (m *memStore) Clear(context.Context) error                      { m.saved = nil; return nil }
func (m *memStore) Count(context.Context) (int64, error)             { return int64(len(m.saved)), nil }

func TestConstructors(t *testing.T) {
	assert.Equal(t, LevelInfo, Info("Task created", "").Level)
	assert.Equal(t, LevelWarning, Warning("Careful", "x").Level)

	n := Error("Failed to move task", errors.New("sprint missing"))
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "sprint missing", n.Description)

	assert.Empty(t, Error("Failed", nil).Description)
}

func TestMulti_RunsAllAndJoinsErrors(t *testing.T) {
	rec := &Recorder{}
	boom := errors.New("boom")

	err := Multi{failingNotifier{boom}, rec}.Notify(context.Background(), Info("hi", ""))
	require.ErrorIs(t, err, boom)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "hi", last.Title)
}

func TestStoreNotifier_FillsDefaults(t *testing.T) {
	store := &memStore{}
	nf := StoreNotifier{Store: store, UserID: "alice"}

	require.NoError(t, nf.Notify(context.Background(), Info("Task created", "Write docs")))

	require.Len(t, store.saved, 1)
	assert.Equal(t, "alice", store.saved[0].UserID)
	assert.False(t, store.saved[0].CreatedAt.IsZero())
}

func TestLogNotifier_Levels(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelInfo, "info"},
		{LevelWarning, "warn"},
		{LevelError, "error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			var buf bytes.Buffer
			nf := LogNotifier{Logger: zerolog.New(&buf)}

			require.NoError(t, nf.Notify(context.Background(), Notification{Level: tt.level, Title: "t", Description: "d"}))

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.want, entry["level"])
			assert.Equal(t, "t", entry["message"])
			assert.Equal(t, "d", entry["description"])
		})
	}
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	_, ok := rec.Last()
	assert.False(t, ok)

	ctx := context.Background()
	require.NoError(t, rec.Notify(ctx, Info("a", "")))
	require.NoError(t, rec.Notify(ctx, Info("b", "")))

	all := rec.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Title)

	rec.Reset()
	assert.Empty(t, rec.All())
}

func TestSwitch(t *testing.T) {
	ctx := context.Background()
	var sw Switch

	require.NoError(t, sw.Notify(ctx, Info("dropped", "")))

	first := &Recorder{}
	assert.Nil(t, sw.Set(first))
	require.NoError(t, sw.Notify(ctx, Info("one", "")))

	second := &Recorder{}
	prev := sw.Set(second)
	assert.Same(t, first, prev)
	require.NoError(t, sw.Notify(ctx, Info("two", "")))

	require.Len(t, first.All(), 1)
	assert.Equal(t, "one", first.All()[0].Title)
	require.Len(t, second.All(), 1)
	assert.Equal(t, "two", second.All()[0].Title)
}
