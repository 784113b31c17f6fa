package stores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/kv"
	"github.com/colonyops/backlog/internal/store/jsonfile"
)

type storeFactory struct {
	name string
	open func(t *testing.T) board.Store
}

func boardStores() []storeFactory {
	return []storeFactory{
		{"remote", func(t *testing.T) board.Store {
			return NewRemoteStore(openTestDB(t), "project-1")
		}},
		{"local-memory", func(t *testing.T) board.Store {
			s, err := NewLocalStore(context.Background(), kv.NewMemory(), "alice")
			require.NoError(t, err)
			return s
		}},
		{"local-sqlite", func(t *testing.T) board.Store {
			s, err := NewLocalStore(context.Background(), newTestKVStore(t), "alice")
			require.NoError(t, err)
			return s
		}},
		{"local-jsonfile", func(t *testing.T) board.Store {
			s, err := NewLocalStore(context.Background(), jsonfile.NewKV(t.TempDir()+"/local.json"), "alice")
			require.NoError(t, err)
			return s
		}},
	}
}

func newTask(id, title string) board.Task {
	return board.Task{ID: id, Title: title}.WithDefaults()
}

func newSprint(id, name, start, end string, tasks ...string) board.Sprint {
	return board.Sprint{
		ID:        id,
		Name:      name,
		StartDate: board.MustParseDate(start),
		EndDate:   board.MustParseDate(end),
		TaskIDs:   tasks,
	}.WithDefaults()
}

func TestBoardStore_EmptyCollections(t *testing.T) {
	for _, f := range boardStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store := f.open(t)

			tasks, err := store.FetchTasks(ctx)
			require.NoError(t, err)
			assert.Empty(t, tasks)

			sprints, err := store.FetchSprints(ctx)
			require.NoError(t, err)
			assert.Empty(t, sprints)
		})
	}
}

func TestBoardStore_TaskCRUD(t *testing.T) {
	for _, f := range boardStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store := f.open(t)

			task := newTask("t1", "Write docs")
			task.Assignees = []string{"bob", "alice", "bob"}
			require.NoError(t, store.CreateTask(ctx, task))
			require.NoError(t, store.CreateTask(ctx, newTask("t2", "Ship it")))

			tasks, err := store.FetchTasks(ctx)
			require.NoError(t, err)
			require.Len(t, tasks, 2)
			assert.Equal(t, "t1", tasks[0].ID, "tasks keep creation order")
			assert.Equal(t, []string{"alice", "bob"}, tasks[0].Assignees)
			assert.Equal(t, board.PriorityMedium, tasks[0].Priority)
			assert.Equal(t, 1, tasks[0].Points)
			assert.Equal(t, board.StatusTodo, tasks[0].Status)

			task.Status = board.StatusDone
			task.Points = 5
			require.NoError(t, store.UpdateTask(ctx, task))

			tasks, err = store.FetchTasks(ctx)
			require.NoError(t, err)
			got, ok := board.FindTask(tasks, "t1")
			require.True(t, ok)
			assert.Equal(t, board.StatusDone, got.Status)
			assert.Equal(t, 5, got.Points)

			err = store.UpdateTask(ctx, newTask("ghost", "Nope"))
			assert.ErrorIs(t, err, board.ErrNotFound)

			err = store.CreateTask(ctx, newTask("t1", "Duplicate"))
			assert.ErrorIs(t, err, board.ErrPersistence)
		})
	}
}

func TestBoardStore_SprintsOrderedByStart(t *testing.T) {
	for _, f := range boardStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store := f.open(t)

			require.NoError(t, store.CreateSprint(ctx, newSprint("s2", "Second", "2024-02-01", "2024-02-14")))
			require.NoError(t, store.CreateSprint(ctx, newSprint("s1", "First", "2024-01-01", "2024-01-14")))
			// End before start is stored as given.
			require.NoError(t, store.CreateSprint(ctx, newSprint("s3", "Backwards", "2024-03-10", "2024-03-01")))

			sprints, err := store.FetchSprints(ctx)
			require.NoError(t, err)
			require.Len(t, sprints, 3)
			assert.Equal(t, []string{"s1", "s2", "s3"}, []string{sprints[0].ID, sprints[1].ID, sprints[2].ID})
			assert.Equal(t, "2024-03-01", sprints[2].EndDate.String())
			assert.NotNil(t, sprints[0].TaskIDs)
		})
	}
}

func TestBoardStore_UpdateSprintReplacesOrder(t *testing.T) {
	for _, f := range boardStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store := f.open(t)

			sp := newSprint("s1", "Sprint", "2024-01-01", "2024-01-14", "a", "b", "c")
			require.NoError(t, store.CreateSprint(ctx, sp))

			sp.TaskIDs = []string{"c", "a", "b"}
			sp.Name = "Renamed"
			require.NoError(t, store.UpdateSprint(ctx, sp))

			sprints, err := store.FetchSprints(ctx)
			require.NoError(t, err)
			require.Len(t, sprints, 1)
			assert.Equal(t, []string{"c", "a", "b"}, sprints[0].TaskIDs)
			assert.Equal(t, "Renamed", sprints[0].Name)

			err = store.UpdateSprint(ctx, newSprint("ghost", "Nope", "2024-01-01", "2024-01-02"))
			assert.ErrorIs(t, err, board.ErrNotFound)
		})
	}
}

func TestBoardStore_DeleteTaskCascades(t *testing.T) {
	for _, f := range boardStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store := f.open(t)

			require.NoError(t, store.CreateTask(ctx, newTask("t1", "One")))
			require.NoError(t, store.CreateTask(ctx, newTask("t2", "Two")))
			require.NoError(t, store.CreateSprint(ctx, newSprint("s1", "Sprint", "2024-01-01", "2024-01-14", "t1", "t2")))

			require.NoError(t, store.DeleteTask(ctx, "t1"))

			tasks, err := store.FetchTasks(ctx)
			require.NoError(t, err)
			require.Len(t, tasks, 1)
			assert.Equal(t, "t2", tasks[0].ID)

			sprints, err := store.FetchSprints(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"t2"}, sprints[0].TaskIDs)

			assert.ErrorIs(t, store.DeleteTask(ctx, "t1"), board.ErrNotFound)
		})
	}
}

func TestBoardStore_DeleteSprintLeavesTasks(t *testing.T) {
	for _, f := range boardStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store := f.open(t)

			require.NoError(t, store.CreateTask(ctx, newTask("t1", "One")))
			require.NoError(t, store.CreateSprint(ctx, newSprint("s1", "Sprint", "2024-01-01", "2024-01-14", "t1")))

			require.NoError(t, store.DeleteSprint(ctx, "s1"))

			tasks, err := store.FetchTasks(ctx)
			require.NoError(t, err)
			sprints, err := store.FetchSprints(ctx)
			require.NoError(t, err)

			assert.Empty(t, sprints)
			assert.Len(t, board.Backlog(tasks, sprints), 1, "member task falls back into the backlog")

			assert.ErrorIs(t, store.DeleteSprint(ctx, "s1"), board.ErrNotFound)
		})
	}
}
