package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/kv"
	"github.com/colonyops/backlog/internal/core/notify"
	"github.com/colonyops/backlog/internal/data/stores"
	"github.com/colonyops/backlog/internal/planner"
)

type fixture struct {
	svc    *planner.Service
	buffer *NotificationBuffer
	tasks  map[string]board.Task
	sprint board.Sprint
}

// newFixture builds a board with three backlog tasks and one sprint
// holding "alpha" and "beta".
func newFixture(t *testing.T) (fixture, Model) {
	t.Helper()
	ctx := context.Background()

	store, err := stores.NewLocalStore(ctx, kv.NewMemory(), "alice")
	require.NoError(t, err)

	buffer := NewNotificationBuffer()
	svc := planner.NewService(store, buffer)

	f := fixture{svc: svc, buffer: buffer, tasks: make(map[string]board.Task)}
	for _, title := range []string{"alpha", "beta", "gamma"} {
		task, err := svc.CreateTask(ctx, planner.TaskInput{Title: title})
		require.NoError(t, err)
		f.tasks[title] = task
	}

	f.sprint, err = svc.CreateSprint(ctx, planner.SprintInput{
		Name:      "Sprint 1",
		StartDate: board.MustParseDate("2024-01-01"),
		EndDate:   board.MustParseDate("2024-01-14"),
	})
	require.NoError(t, err)
	_, err = svc.MoveToSprint(ctx, f.tasks["alpha"].ID, f.sprint.ID)
	require.NoError(t, err)
	_, err = svc.MoveToSprint(ctx, f.tasks["beta"].ID, f.sprint.ID)
	require.NoError(t, err)
	buffer.Drain()

	m := New(ctx, svc, buffer)
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = send(t, m, boardLoadedMsg{})
	return f, m
}

// send delivers msg and runs a resulting board action synchronously.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()

	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		return m
	}

	out := cmd()
	if done, ok := out.(actionDoneMsg); ok {
		next, _ = m.Update(done)
		m = next.(Model)
	}
	return m
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func titles(c column) []string {
	out := make([]string, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestModel_Columns(t *testing.T) {
	f, m := newFixture(t)

	require.Len(t, m.columns, 2)
	assert.Equal(t, "Backlog", m.columns[0].title)
	assert.Equal(t, []string{"gamma"}, titles(m.columns[0]))
	assert.Equal(t, f.sprint.ID, m.columns[1].key)
	assert.Equal(t, []string{"alpha", "beta"}, titles(m.columns[1]))
}

func TestModel_Navigation(t *testing.T) {
	_, m := newFixture(t)

	m = send(t, m, keys("h"))
	assert.Equal(t, 0, m.col, "left stops at the backlog")

	m = send(t, m, keys("l"))
	m = send(t, m, keys("l"))
	assert.Equal(t, 1, m.col, "right stops at the last sprint")

	m = send(t, m, keys("j"))
	m = send(t, m, keys("j"))
	task, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "beta", task.Title)
}

func TestModel_MoveToSprintAndBack(t *testing.T) {
	f, m := newFixture(t)

	m = send(t, m, keys("]"))
	assert.Empty(t, m.columns[0].tasks)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, titles(m.columns[1]))
	assert.Equal(t, 1, m.col, "focus follows the moved task")

	task, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, f.tasks["gamma"].ID, task.ID)

	m = send(t, m, keys("["))
	assert.Equal(t, []string{"gamma"}, titles(m.columns[0]))
	assert.Equal(t, []string{"alpha", "beta"}, titles(m.columns[1]))

	items := f.buffer.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, "Task moved", items[0].Title)
	assert.Equal(t, "Task removed", items[1].Title)
}

func TestModel_Reorder(t *testing.T) {
	_, m := newFixture(t)

	m = send(t, m, keys("l"))
	m = send(t, m, keys("J"))
	assert.Equal(t, []string{"beta", "alpha"}, titles(m.columns[1]))

	task, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "alpha", task.Title, "cursor follows the moved task")

	m = send(t, m, keys("J"))
	assert.Equal(t, []string{"beta", "alpha"}, titles(m.columns[1]), "last task cannot move down")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftUp})
	assert.Equal(t, []string{"alpha", "beta"}, titles(m.columns[1]))
}

func TestModel_ReorderBacklogWarns(t *testing.T) {
	_, m := newFixture(t)

	m = send(t, m, keys("K"))
	require.True(t, m.toasts.HasToasts())
	assert.Equal(t, "Backlog order is fixed", m.toasts.Toasts()[0].notification.Title)
}

func TestModel_CycleStatus(t *testing.T) {
	f, m := newFixture(t)

	m = send(t, m, keys("s"))
	task, err := f.svc.Task(f.tasks["gamma"].ID)
	require.NoError(t, err)
	assert.Equal(t, board.StatusInProgress, task.Status)

	m = send(t, m, keys("s"))
	_ = send(t, m, keys("s"))
	task, err = f.svc.Task(f.tasks["gamma"].ID)
	require.NoError(t, err)
	assert.Equal(t, board.StatusTodo, task.Status, "done wraps to todo")
}

func TestModel_BusyIgnoresActions(t *testing.T) {
	_, m := newFixture(t)
	m.busy = true

	next, cmd := m.Update(keys("]"))
	assert.Nil(t, cmd)
	assert.Equal(t, []string{"gamma"}, titles(next.(Model).columns[0]))
}

func TestModel_DrainShowsToasts(t *testing.T) {
	f, m := newFixture(t)

	f.buffer.Push(notify.Error("Failed to move task", nil))
	f.buffer.Push(notify.Info("Task moved", ""))

	next, cmd := m.Update(drainNotificationsMsg{})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.toasts.Ticking())
	require.Len(t, m.toasts.Toasts(), 2)

	view := m.View()
	assert.Contains(t, view, "Failed to move task")
	assert.Contains(t, view, "Sprint 1")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.toasts.Toasts(), 1)
}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, board.StatusInProgress, nextStatus(board.StatusTodo))
	assert.Equal(t, board.StatusDone, nextStatus(board.StatusInProgress))
	assert.Equal(t, board.StatusTodo, nextStatus(board.StatusDone))
	assert.Equal(t, board.StatusTodo, nextStatus("unknown"))
}
