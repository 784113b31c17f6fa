package planner

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/logging"
	"github.com/colonyops/backlog/internal/core/membership"
	"github.com/colonyops/backlog/internal/core/notify"
)

// TaskInput carries the user-supplied fields of a new task.
type TaskInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    board.Priority `json:"priority"`
	Points      int            `json:"points"`
	Status      board.Status   `json:"status"`
	Assignees   []string       `json:"assignees"`
	// Sprint, when set, places the new task directly into that sprint.
	// Import does not read it.
	Sprint string `json:"-"`
}

// SprintInput carries the user-supplied fields of a new sprint.
type SprintInput struct {
	Name      string     `json:"name"`
	StartDate board.Date `json:"startDate"`
	EndDate   board.Date `json:"endDate"`
}

// Service is the single entry point for board operations. It validates
// input, serializes mutations per sprint, delegates membership changes to
// the coordinator, refreshes its cached view after every successful write,
// and reports each outcome through the notifier.
type Service struct {
	store    board.Store
	coord    *membership.Coordinator
	notifier notify.Notifier
	locks    *sprintLocks
	log      zerolog.Logger

	mu      sync.RWMutex
	loaded  bool
	tasks   []board.Task
	sprints []board.Sprint
}

// NewService creates a Service over store. A nil notifier discards
// notifications.
func NewService(store board.Store, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Multi{}
	}
	return &Service{
		store:    store,
		coord:    membership.New(store),
		notifier: notifier,
		locks:    newSprintLocks(),
		log:      logging.Component("planner"),
	}
}

// Load fetches tasks and sprints into the cache.
func (s *Service) Load(ctx context.Context) error {
	if err := s.refresh(ctx); err != nil {
		s.fail(ctx, "Error fetching board", err)
		return err
	}
	return nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

// refresh replaces the cache only when both fetches succeed.
func (s *Service) refresh(ctx context.Context) error {
	tasks, err := s.store.FetchTasks(ctx)
	if err != nil {
		return fmt.Errorf("fetch tasks: %w", err)
	}
	sprints, err := s.store.FetchSprints(ctx)
	if err != nil {
		return fmt.Errorf("fetch sprints: %w", err)
	}

	s.mu.Lock()
	s.tasks = tasks
	s.sprints = sprints
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Tasks returns a copy of the cached tasks.
func (s *Service) Tasks() []board.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// Sprints returns a copy of the cached sprints ordered by start date.
func (s *Service) Sprints() []board.Sprint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]board.Sprint, 0, len(s.sprints))
	for _, sp := range s.sprints {
		out = append(out, sp.Clone())
	}
	return out
}

// Backlog derives the backlog from the cache.
func (s *Service) Backlog() []board.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return board.Backlog(s.tasks, s.sprints)
}

// Task returns a cached task.
func (s *Service) Task(id string) (board.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := board.FindTask(s.tasks, id)
	if !ok {
		return board.Task{}, board.NotFound("task", id)
	}
	return t.Clone(), nil
}

// Sprint returns a cached sprint.
func (s *Service) Sprint(id string) (board.Sprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := board.FindSprint(s.sprints, id)
	if !ok {
		return board.Sprint{}, board.NotFound("sprint", id)
	}
	return sp.Clone(), nil
}

// holders returns the cached ids of sprints listing taskID.
func (s *Service) holders(taskID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return holderIDs(taskID, s.sprints)
}

func holderIDs(taskID string, sprints []board.Sprint) []string {
	var ids []string
	for _, sp := range board.Holders(taskID, sprints) {
		ids = append(ids, sp.ID)
	}
	return ids
}

// maxLockAttempts bounds how often lockHolders retries when the holders
// of a task keep changing between taking the locks and checking the store.
const maxLockAttempts = 8

// lockHolders locks every sprint that lists taskID plus extra. The cached
// holders are only a first guess: once locked, the holders are re-read
// from the store and, if any of them is not covered, the locks are
// released and taken again over the fresh set.
func (s *Service) lockHolders(ctx context.Context, taskID string, extra ...string) (func(), error) {
	want := s.holders(taskID)
	for range maxLockAttempts {
		unlock := s.locks.lock(append(slices.Clone(want), extra...)...)

		sprints, err := s.store.FetchSprints(ctx)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("fetch sprints: %w", err)
		}
		got := holderIDs(taskID, sprints)
		if covers(want, got) {
			return unlock, nil
		}

		unlock()
		s.log.Debug().Ctx(ctx).Str("task_id", taskID).Strs("holders", got).Msg("holders changed while locking, retrying")
		want = got
	}
	return nil, fmt.Errorf("lock sprints of task %s: membership kept changing", taskID)
}

func covers(locked, ids []string) bool {
	for _, id := range ids {
		if !slices.Contains(locked, id) {
			return false
		}
	}
	return true
}

// CreateTask validates in and persists a new task. It lands in the backlog
// unless in.Sprint names a sprint, which is resolved before anything is
// written.
func (s *Service) CreateTask(ctx context.Context, in TaskInput) (board.Task, error) {
	task := taskFromInput(in).WithDefaults()
	if err := task.Validate(); err != nil {
		err = board.Invalid("task", err)
		s.fail(ctx, "Failed to create task", err)
		return board.Task{}, err
	}

	if in.Sprint != "" {
		return s.createInSprint(ctx, task, in.Sprint)
	}

	err := s.mutate(ctx, "Failed to create task", func() error {
		return s.store.CreateTask(ctx, task)
	})
	if err != nil {
		return board.Task{}, err
	}

	s.log.Debug().Ctx(ctx).Str("task_id", task.ID).Msg("task created")
	s.notify(ctx, notify.Info("Task created", task.Title))
	return task, nil
}

// createInSprint persists task and adds it to sprintID under that sprint's
// lock. If the sprint write fails the task is deleted again so no half
// created task is left behind.
func (s *Service) createInSprint(ctx context.Context, task board.Task, sprintID string) (board.Task, error) {
	unlock := s.locks.lock(sprintID)
	defer unlock()

	var target board.Sprint
	err := s.mutate(ctx, "Failed to create task", func() error {
		sprints, err := s.store.FetchSprints(ctx)
		if err != nil {
			return fmt.Errorf("fetch sprints: %w", err)
		}
		if _, ok := board.FindSprint(sprints, sprintID); !ok {
			return board.NotFound("sprint", sprintID)
		}

		if err := s.store.CreateTask(ctx, task); err != nil {
			return err
		}
		target, err = s.coord.AddTaskToSprint(ctx, sprintID, task.ID)
		if err != nil {
			if derr := s.store.DeleteTask(ctx, task.ID); derr != nil {
				s.log.Error().Ctx(ctx).Err(derr).Str("task_id", task.ID).Msg("remove task after failed sprint add")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return board.Task{}, err
	}

	s.log.Debug().Ctx(ctx).Str("task_id", task.ID).Str("sprint_id", sprintID).Msg("task created in sprint")
	s.notify(ctx, notify.Info("Task created", fmt.Sprintf("%s → %s", task.Title, target.Name)))
	return task, nil
}

// ImportTasks creates every input in order and stops at the first failure.
// Tasks created before the failure are kept.
func (s *Service) ImportTasks(ctx context.Context, inputs []TaskInput) ([]board.Task, error) {
	tasks := make([]board.Task, 0, len(inputs))
	for i, in := range inputs {
		task := taskFromInput(in).WithDefaults()
		if err := task.Validate(); err != nil {
			err = board.Invalid(fmt.Sprintf("task %d", i), err)
			s.fail(ctx, "Failed to import tasks", err)
			return tasks, err
		}
		tasks = append(tasks, task)
	}

	created := make([]board.Task, 0, len(tasks))
	err := s.mutate(ctx, "Failed to import tasks", func() error {
		for _, task := range tasks {
			if err := s.store.CreateTask(ctx, task); err != nil {
				return err
			}
			created = append(created, task)
		}
		return nil
	})
	if err != nil {
		return created, err
	}

	s.notify(ctx, notify.Info("Tasks imported", fmt.Sprintf("%d task(s)", len(created))))
	return created, nil
}

// EditTask loads the current task from the store, applies fn, validates the
// result, and writes it back.
func (s *Service) EditTask(ctx context.Context, id string, fn func(*board.Task)) (board.Task, error) {
	var updated board.Task
	err := s.mutate(ctx, "Failed to update task", func() error {
		tasks, err := s.store.FetchTasks(ctx)
		if err != nil {
			return err
		}
		current, ok := board.FindTask(tasks, id)
		if !ok {
			return board.NotFound("task", id)
		}

		updated = current.Clone()
		fn(&updated)
		updated.ID = current.ID
		updated.Title = strings.TrimSpace(updated.Title)
		updated.Assignees = board.NormalizeAssignees(updated.Assignees)
		if err := updated.Validate(); err != nil {
			return board.Invalid("task", err)
		}
		return s.store.UpdateTask(ctx, updated)
	})
	if err != nil {
		return board.Task{}, err
	}

	s.notify(ctx, notify.Info("Task updated", updated.Title))
	return updated, nil
}

// SetStatus changes the workflow status of a task.
func (s *Service) SetStatus(ctx context.Context, id string, status board.Status) (board.Task, error) {
	return s.EditTask(ctx, id, func(t *board.Task) { t.Status = status })
}

// DeleteTask removes a task and strips it from every sprint. It excludes
// all per-sprint mutations while it runs.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	unlock := s.locks.lockAll()
	defer unlock()

	err := s.mutate(ctx, "Failed to delete task", func() error {
		return s.coord.DeleteTask(ctx, id)
	})
	if err != nil {
		return err
	}

	s.notify(ctx, notify.Info("Task deleted", id))
	return nil
}

// CreateSprint validates in and persists a new, empty sprint.
func (s *Service) CreateSprint(ctx context.Context, in SprintInput) (board.Sprint, error) {
	sprint := board.Sprint{Name: in.Name, StartDate: in.StartDate, EndDate: in.EndDate}.WithDefaults()
	if err := sprint.Validate(); err != nil {
		err = board.Invalid("sprint", err)
		s.fail(ctx, "Failed to create sprint", err)
		return board.Sprint{}, err
	}

	err := s.mutate(ctx, "Failed to create sprint", func() error {
		return s.store.CreateSprint(ctx, sprint)
	})
	if err != nil {
		return board.Sprint{}, err
	}

	s.notify(ctx, notify.Info("Sprint created", sprint.Name))
	return sprint, nil
}

// DeleteSprint removes a sprint. Its tasks return to the backlog.
func (s *Service) DeleteSprint(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	err := s.mutate(ctx, "Failed to delete sprint", func() error {
		return s.coord.DeleteSprint(ctx, id)
	})
	if err != nil {
		return err
	}

	s.notify(ctx, notify.Info("Sprint deleted", id))
	return nil
}

// MoveToSprint moves a task into a sprint, out of any sprint holding it.
func (s *Service) MoveToSprint(ctx context.Context, taskID, sprintID string) (board.Sprint, error) {
	return s.moveToSprint(ctx, taskID, sprintID, "Task moved", "Failed to move task")
}

// AddTaskToSprint is MoveToSprint reported as an addition.
func (s *Service) AddTaskToSprint(ctx context.Context, sprintID, taskID string) (board.Sprint, error) {
	return s.moveToSprint(ctx, taskID, sprintID, "Task added", "Failed to add task")
}

func (s *Service) moveToSprint(ctx context.Context, taskID, sprintID, okTitle, failTitle string) (board.Sprint, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return board.Sprint{}, err
	}
	unlock, err := s.lockHolders(ctx, taskID, sprintID)
	if err != nil {
		s.fail(ctx, failTitle, err)
		return board.Sprint{}, err
	}
	defer unlock()

	var target board.Sprint
	err = s.mutate(ctx, failTitle, func() error {
		var err error
		target, err = s.coord.MoveToSprint(ctx, taskID, sprintID)
		return err
	})
	if err != nil {
		return board.Sprint{}, err
	}

	s.notify(ctx, notify.Info(okTitle, fmt.Sprintf("%s → %s", taskID, target.Name)))
	return target, nil
}

// MoveToBacklog removes a task from whichever sprint holds it.
func (s *Service) MoveToBacklog(ctx context.Context, taskID string) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	unlock, err := s.lockHolders(ctx, taskID)
	if err != nil {
		s.fail(ctx, "Failed to remove task", err)
		return err
	}
	defer unlock()

	err = s.mutate(ctx, "Failed to remove task", func() error {
		return s.coord.MoveToBacklog(ctx, taskID)
	})
	if err != nil {
		return err
	}

	s.notify(ctx, notify.Info("Task removed", taskID+" moved to backlog"))
	return nil
}

// Reorder moves sourceID to targetID's position within a sprint. A reorder
// that leaves the order as it was is silent.
func (s *Service) Reorder(ctx context.Context, sprintID, sourceID, targetID string) (board.Sprint, error) {
	unlock := s.locks.lock(sprintID)
	defer unlock()

	var (
		sprint  board.Sprint
		changed bool
	)
	err := s.mutate(ctx, "Failed to reorder task", func() error {
		var err error
		sprint, changed, err = s.coord.Reorder(ctx, sprintID, sourceID, targetID)
		return err
	})
	if err != nil {
		return board.Sprint{}, err
	}

	if changed {
		s.notify(ctx, notify.Info("Task reordered", sprint.Name))
	}
	return sprint, nil
}

// mutate runs fn and refreshes the cache after it succeeds. A failing fn
// is reported under failTitle and the cache is left untouched. A failing
// refresh after a successful write is reported as a warning only.
func (s *Service) mutate(ctx context.Context, failTitle string, fn func() error) error {
	if err := fn(); err != nil {
		s.fail(ctx, failTitle, err)
		return err
	}
	if err := s.refresh(ctx); err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("refresh after write failed")
		s.notify(ctx, notify.Warning("Board may be out of date", err.Error()))
	}
	return nil
}

func (s *Service) fail(ctx context.Context, title string, err error) {
	s.log.Error().Ctx(ctx).Err(err).Msg(strings.ToLower(title))
	s.notify(ctx, notify.Error(title, err))
}

func (s *Service) notify(ctx context.Context, n notify.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Str("title", n.Title).Msg("notification not delivered")
	}
}

func taskFromInput(in TaskInput) board.Task {
	return board.Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Points:      in.Points,
		Status:      in.Status,
		Assignees:   in.Assignees,
	}
}
