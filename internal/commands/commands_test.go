package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/config"
	"github.com/colonyops/backlog/internal/core/kv"
	"github.com/colonyops/backlog/internal/core/notify"
	"github.com/colonyops/backlog/internal/data/stores"
	"github.com/colonyops/backlog/internal/planner"
	"github.com/colonyops/backlog/internal/printer"
)

func newTestApp(t *testing.T) (*planner.App, *notify.Recorder) {
	t.Helper()

	store, err := stores.NewLocalStore(context.Background(), kv.NewMemory(), "alice")
	require.NoError(t, err)

	rec := &notify.Recorder{}
	cfg := config.DefaultConfig()
	return &planner.App{
		Board:   planner.NewService(store, rec),
		Console: &notify.Switch{},
		Config:  &cfg,
	}, rec
}

// run executes args against a fresh command tree and returns everything
// written to stdout.
func run(t *testing.T, app *planner.App, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	flags := &Flags{Config: app.Config}

	root := &cli.Command{
		Name:           "backlog",
		Writer:         &buf,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
	root = NewTaskCmd(flags, app).Register(root)
	root = NewSprintCmd(flags, app).Register(root)
	root = NewMoveCmd(flags, app).Register(root)

	ctx := printer.WithContext(context.Background(), printer.NewPlain(&buf, &buf))
	err := root.Run(ctx, append([]string{"backlog"}, args...))
	return buf.String(), err
}

func decodeLines[T any](t *testing.T, out string) []T {
	t.Helper()

	var items []T
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var v T
		require.NoError(t, json.Unmarshal([]byte(line), &v), line)
		items = append(items, v)
	}
	return items
}

func createTask(t *testing.T, app *planner.App, title string) board.Task {
	t.Helper()

	out, err := run(t, app, "task", "create", "--title", title, "--points", "3", "--json")
	require.NoError(t, err)
	tasks := decodeLines[board.Task](t, out)
	require.Len(t, tasks, 1)
	return tasks[0]
}

func TestTaskCreateAndList(t *testing.T) {
	app, rec := newTestApp(t)

	docs := createTask(t, app, "Write docs")
	createTask(t, app, "Fix login")

	assert.Equal(t, 3, docs.Points)
	assert.Equal(t, board.DefaultPriority, docs.Priority)
	assert.Equal(t, board.StatusTodo, docs.Status)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "Task created", last.Title)

	out, err := run(t, app, "task", "ls", "--match", "*DOCS*", "--json")
	require.NoError(t, err)
	tasks := decodeLines[board.Task](t, out)
	require.Len(t, tasks, 1)
	assert.Equal(t, docs.ID, tasks[0].ID)
}

func TestTaskCreate_IntoSprint(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, app, "sprint", "create", "--name", "Sprint 1", "--start", "2024-01-01", "--end", "2024-01-14")
	require.NoError(t, err)

	out, err := run(t, app, "task", "create", "--title", "Write docs", "--sprint", "sprint 1", "--json")
	require.NoError(t, err)
	tasks := decodeLines[board.Task](t, out)
	require.Len(t, tasks, 1)

	sprint, err := resolveSprint(app.Board, "Sprint 1")
	require.NoError(t, err)
	assert.Equal(t, []string{tasks[0].ID}, sprint.TaskIDs)
	assert.Empty(t, app.Board.Backlog())
}

func TestTaskCreate_UnknownSprintCreatesNothing(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, app, "task", "create", "--title", "Write docs", "--sprint", "nope")
	require.ErrorIs(t, err, board.ErrNotFound)

	require.NoError(t, app.Board.Load(context.Background()))
	assert.Empty(t, app.Board.Tasks())
}

func TestTaskList_InvalidStatus(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, app, "task", "ls", "--status", "blocked")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
}

func TestTaskStatus_InvalidReportsOnce(t *testing.T) {
	app, rec := newTestApp(t)
	task := createTask(t, app, "Write docs")
	rec.Reset()

	_, err := run(t, app, "task", "status", shortID(task.ID), "blocked")
	require.Error(t, err)

	var exitErr cli.ExitCoder
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Empty(t, err.Error(), "message already delivered by the notifier")

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, last.Level)
	assert.Equal(t, "Failed to update task", last.Title)
}

func TestTaskEdit_OnlySetFields(t *testing.T) {
	app, _ := newTestApp(t)
	task := createTask(t, app, "Write docs")

	_, err := run(t, app, "task", "edit", task.ID, "--priority", "high")
	require.NoError(t, err)

	got, err := app.Board.Task(task.ID)
	require.NoError(t, err)
	assert.Equal(t, board.PriorityHigh, got.Priority)
	assert.Equal(t, "Write docs", got.Title)
	assert.Equal(t, 3, got.Points)
}

func TestMoveBetweenSprintAndBacklog(t *testing.T) {
	app, _ := newTestApp(t)
	task := createTask(t, app, "Write docs")

	_, err := run(t, app, "sprint", "create", "--name", "Sprint 1", "--start", "2024-01-01", "--end", "2024-01-14")
	require.NoError(t, err)

	_, err = run(t, app, "move", shortID(task.ID), "--sprint", "sprint 1")
	require.NoError(t, err)

	out, err := run(t, app, "backlog", "--json")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))

	out, err = run(t, app, "sprint", "show", "Sprint 1", "--json")
	require.NoError(t, err)
	views := decodeLines[planner.SprintView](t, out)
	require.Len(t, views, 1)
	require.Len(t, views[0].Tasks, 1)
	assert.Equal(t, task.ID, views[0].Tasks[0].ID)
	assert.Equal(t, 3, views[0].Summary.TotalPoints)

	_, err = run(t, app, "move", task.ID, "--backlog")
	require.NoError(t, err)

	out, err = run(t, app, "backlog", "--json")
	require.NoError(t, err)
	backlog := decodeLines[board.Task](t, out)
	require.Len(t, backlog, 1)
	assert.Equal(t, task.ID, backlog[0].ID)
}

func TestMove_RequiresExactlyOneTarget(t *testing.T) {
	app, _ := newTestApp(t)
	task := createTask(t, app, "Write docs")

	_, err := run(t, app, "move", task.ID)
	require.Error(t, err)

	_, err = run(t, app, "move", task.ID, "--sprint", "x", "--backlog")
	require.Error(t, err)
}

func TestReorder(t *testing.T) {
	app, _ := newTestApp(t)
	a := createTask(t, app, "alpha")
	b := createTask(t, app, "beta")
	c := createTask(t, app, "gamma")

	_, err := run(t, app, "sprint", "create", "--name", "S", "--start", "2024-01-01", "--end", "2024-01-14")
	require.NoError(t, err)
	for _, task := range []board.Task{a, b, c} {
		_, err := run(t, app, "sprint", "add", "S", task.ID)
		require.NoError(t, err)
	}

	out, err := run(t, app, "reorder", "S", c.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "  1. gamma\n  2. alpha\n  3. beta\n", out)
}

func TestResolveTask(t *testing.T) {
	app, _ := newTestApp(t)
	a := createTask(t, app, "alpha")
	createTask(t, app, "beta")

	got, err := resolveTask(app.Board, a.ID[:6])
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = resolveTask(app.Board, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")

	_, err = resolveTask(app.Board, "zzzz")
	assert.ErrorIs(t, err, board.ErrNotFound)
}

func TestResolveSprint_ByName(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, app, "sprint", "create", "--name", "Sprint 1", "--start", "2024-01-01", "--end", "2024-01-14")
	require.NoError(t, err)

	got, err := resolveSprint(app.Board, "SPRINT 1")
	require.NoError(t, err)
	assert.Equal(t, "Sprint 1", got.Name)

	_, err = resolveSprint(app.Board, "Sprint 2")
	assert.ErrorIs(t, err, board.ErrNotFound)
}

func TestSkipsDatabase(t *testing.T) {
	assert.True(t, SkipsDatabase([]string{"db", "recover"}))
	assert.False(t, SkipsDatabase([]string{"db", "status"}))
	assert.False(t, SkipsDatabase([]string{"db"}))
	assert.False(t, SkipsDatabase(nil))
}

func TestFlags_ConfigOptions(t *testing.T) {
	f := &Flags{Backend: "local", User: "bob"}

	cfg := config.DefaultConfig()
	for _, opt := range f.ConfigOptions() {
		opt(&cfg)
	}

	assert.Equal(t, config.BackendLocal, cfg.Backend)
	assert.Equal(t, "bob", cfg.User)
	assert.Equal(t, config.DefaultProject, cfg.Project, "empty flags keep the configured value")
}
