package stores

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/kv"
	"github.com/colonyops/backlog/internal/core/logging"
)

// Base keys of the per-user collections. The stored key is "<base>_<userID>".
const (
	KeySprints        = "sprints"
	KeyTasks          = "tasks"
	KeyProductBacklog = "productBacklog"
)

// LocalStore implements board.Store for a single user on top of any kv.KV.
// Each collection is one JSON array rewritten in full on every mutation.
// The productBacklog entry is a snapshot refreshed after each write; reads
// always derive the backlog from tasks and sprints instead.
type LocalStore struct {
	mu      sync.Mutex
	userID  string
	tasks   *kv.Collection[board.Task]
	sprints *kv.Collection[board.Sprint]
	backlog *kv.Collection[board.Task]
	log     zerolog.Logger
}

var _ board.Store = (*LocalStore)(nil)

// NewLocalStore opens the collections of userID and initialises any that are
// missing to an empty array.
func NewLocalStore(ctx context.Context, store kv.KV, userID string) (*LocalStore, error) {
	if userID == "" {
		return nil, fmt.Errorf("local store: user id is required")
	}

	s := &LocalStore{
		userID:  userID,
		tasks:   kv.UserCollection[board.Task](store, KeyTasks, userID),
		sprints: kv.UserCollection[board.Sprint](store, KeySprints, userID),
		backlog: kv.UserCollection[board.Task](store, KeyProductBacklog, userID),
		log:     logging.Component("local-store").With().Str("user_id", userID).Logger(),
	}

	for _, init := range []func(context.Context) error{s.sprints.Init, s.tasks.Init, s.backlog.Init} {
		if err := init(ctx); err != nil {
			return nil, board.Persistence("init local store", err)
		}
	}

	return s, nil
}

// UserID returns the user whose collections the store reads and writes.
func (s *LocalStore) UserID() string {
	return s.userID
}

// FetchTasks returns tasks in insertion order.
func (s *LocalStore) FetchTasks(ctx context.Context) ([]board.Task, error) {
	tasks, err := s.tasks.Load(ctx)
	if err != nil {
		return nil, board.Persistence("fetch tasks", err)
	}
	return tasks, nil
}

// FetchSprints returns sprints ordered by start date.
func (s *LocalStore) FetchSprints(ctx context.Context) ([]board.Sprint, error) {
	sprints, err := s.sprints.Load(ctx)
	if err != nil {
		return nil, board.Persistence("fetch sprints", err)
	}
	board.SortSprints(sprints)
	return sprints, nil
}

func (s *LocalStore) CreateTask(ctx context.Context, task board.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = board.NewID()
	}
	task.Assignees = board.NormalizeAssignees(task.Assignees)

	tasks, err := s.tasks.Load(ctx)
	if err != nil {
		return board.Persistence("create task", err)
	}
	if _, ok := board.FindTask(tasks, task.ID); ok {
		return board.Persistence("create task", fmt.Errorf("task %q already exists", task.ID))
	}

	if err := s.tasks.Save(ctx, append(tasks, task)); err != nil {
		return board.Persistence("create task", err)
	}

	s.log.Debug().Str("task_id", task.ID).Msg("task created")
	s.snapshot(ctx)
	return nil
}

func (s *LocalStore) UpdateTask(ctx context.Context, task board.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.tasks.Load(ctx)
	if err != nil {
		return board.Persistence("update task", err)
	}

	idx := slices.IndexFunc(tasks, func(t board.Task) bool { return t.ID == task.ID })
	if idx < 0 {
		return board.NotFound("task", task.ID)
	}
	task.Assignees = board.NormalizeAssignees(task.Assignees)
	tasks[idx] = task

	if err := s.tasks.Save(ctx, tasks); err != nil {
		return board.Persistence("update task", err)
	}

	s.log.Debug().Str("task_id", task.ID).Msg("task updated")
	s.snapshot(ctx)
	return nil
}

// DeleteTask strips the task from every sprint, then removes it from the
// task collection.
func (s *LocalStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.tasks.Load(ctx)
	if err != nil {
		return board.Persistence("delete task", err)
	}
	idx := slices.IndexFunc(tasks, func(t board.Task) bool { return t.ID == id })
	if idx < 0 {
		return board.NotFound("task", id)
	}

	sprints, err := s.sprints.Load(ctx)
	if err != nil {
		return board.Persistence("delete task", err)
	}
	stripped := false
	for i, sp := range sprints {
		if sp.Contains(id) {
			sprints[i] = sp.WithoutTask(id)
			stripped = true
		}
	}
	if stripped {
		if err := s.sprints.Save(ctx, sprints); err != nil {
			return board.Persistence("delete task", err)
		}
	}

	tasks = slices.Delete(tasks, idx, idx+1)
	if err := s.tasks.Save(ctx, tasks); err != nil {
		return board.Persistence("delete task", err)
	}

	s.log.Debug().Str("task_id", id).Bool("stripped", stripped).Msg("task deleted")
	s.snapshot(ctx)
	return nil
}

func (s *LocalStore) CreateSprint(ctx context.Context, sprint board.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sprint.ID == "" {
		sprint.ID = board.NewID()
	}
	sprint = sprint.Clone()

	sprints, err := s.sprints.Load(ctx)
	if err != nil {
		return board.Persistence("create sprint", err)
	}
	if _, ok := board.FindSprint(sprints, sprint.ID); ok {
		return board.Persistence("create sprint", fmt.Errorf("sprint %q already exists", sprint.ID))
	}

	if err := s.sprints.Save(ctx, append(sprints, sprint)); err != nil {
		return board.Persistence("create sprint", err)
	}

	s.log.Debug().Str("sprint_id", sprint.ID).Msg("sprint created")
	s.snapshot(ctx)
	return nil
}

func (s *LocalStore) UpdateSprint(ctx context.Context, sprint board.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sprints, err := s.sprints.Load(ctx)
	if err != nil {
		return board.Persistence("update sprint", err)
	}

	idx := slices.IndexFunc(sprints, func(sp board.Sprint) bool { return sp.ID == sprint.ID })
	if idx < 0 {
		return board.NotFound("sprint", sprint.ID)
	}
	sprints[idx] = sprint.Clone()

	if err := s.sprints.Save(ctx, sprints); err != nil {
		return board.Persistence("update sprint", err)
	}

	s.log.Debug().Str("sprint_id", sprint.ID).Int("tasks", len(sprint.TaskIDs)).Msg("sprint updated")
	s.snapshot(ctx)
	return nil
}

func (s *LocalStore) DeleteSprint(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sprints, err := s.sprints.Load(ctx)
	if err != nil {
		return board.Persistence("delete sprint", err)
	}

	idx := slices.IndexFunc(sprints, func(sp board.Sprint) bool { return sp.ID == id })
	if idx < 0 {
		return board.NotFound("sprint", id)
	}
	sprints = slices.Delete(sprints, idx, idx+1)

	if err := s.sprints.Save(ctx, sprints); err != nil {
		return board.Persistence("delete sprint", err)
	}

	s.log.Debug().Str("sprint_id", id).Msg("sprint deleted")
	s.snapshot(ctx)
	return nil
}

// snapshot rewrites the productBacklog entry. The mutation it follows has
// already been persisted, so a failure here is logged and not returned.
func (s *LocalStore) snapshot(ctx context.Context) {
	tasks, err := s.tasks.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("backlog snapshot: load tasks")
		return
	}
	sprints, err := s.sprints.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("backlog snapshot: load sprints")
		return
	}
	if err := s.backlog.Save(ctx, board.Backlog(tasks, sprints)); err != nil {
		s.log.Warn().Err(err).Msg("backlog snapshot: save")
	}
}
