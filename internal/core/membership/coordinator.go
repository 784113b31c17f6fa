// Package membership keeps task-to-sprint assignment consistent. Every
// operation reads the current tasks and sprints from a board.Store, computes
// the new sprint task lists in memory, and writes whole sprints back.
package membership

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/logging"
	"github.com/colonyops/backlog/internal/core/ordering"
)

// Coordinator applies membership and ordering changes through a board.Store.
// It holds no state of its own; callers that need per-sprint serialization
// provide it.
type Coordinator struct {
	store board.Store
	log   zerolog.Logger
}

// New creates a Coordinator over store.
func New(store board.Store) *Coordinator {
	return &Coordinator{
		store: store,
		log:   logging.Component("membership"),
	}
}

// MoveToSprint removes the task from whichever sprint holds it and appends it
// to the target sprint. Moving a task to the sprint it already occupies does
// not change its position. Returns the target sprint as persisted.
func (c *Coordinator) MoveToSprint(ctx context.Context, taskID, sprintID string) (board.Sprint, error) {
	sp, err := c.moveToSprint(ctx, taskID, sprintID)
	if err != nil {
		return board.Sprint{}, fmt.Errorf("move task to sprint: %w", err)
	}
	return sp, nil
}

// AddTaskToSprint has the same semantics as MoveToSprint. It is the entry
// point used when a task is assigned to a sprint at creation time.
func (c *Coordinator) AddTaskToSprint(ctx context.Context, sprintID, taskID string) (board.Sprint, error) {
	sp, err := c.moveToSprint(ctx, taskID, sprintID)
	if err != nil {
		return board.Sprint{}, fmt.Errorf("add task to sprint: %w", err)
	}
	return sp, nil
}

func (c *Coordinator) moveToSprint(ctx context.Context, taskID, sprintID string) (board.Sprint, error) {
	tasks, sprints, err := c.load(ctx)
	if err != nil {
		return board.Sprint{}, err
	}

	if _, ok := board.FindTask(tasks, taskID); !ok {
		return board.Sprint{}, board.NotFound("task", taskID)
	}
	target, ok := board.FindSprint(sprints, sprintID)
	if !ok {
		return board.Sprint{}, board.NotFound("sprint", sprintID)
	}

	// Every other sprint listing the task loses it. Normally there is at
	// most one; more means an earlier writer broke exclusivity.
	var others []board.Sprint
	for _, h := range board.Holders(taskID, sprints) {
		if h.ID != sprintID {
			others = append(others, h)
		}
	}
	if len(others) > 1 {
		c.log.Warn().Ctx(ctx).Str("task_id", taskID).Int("holders", len(others)).Msg("task listed in several sprints, repairing")
	}

	written, err := c.strip(ctx, taskID, others)
	if err != nil {
		return board.Sprint{}, err
	}

	next := target.WithTask(taskID).Dedupe()
	if len(written) == 0 && !ordering.Changed(target.TaskIDs, next.TaskIDs) {
		c.log.Debug().Ctx(ctx).Str("task_id", taskID).Str("sprint_id", sprintID).Msg("task already in sprint")
		return target, nil
	}

	if ordering.Changed(target.TaskIDs, next.TaskIDs) {
		if err := c.store.UpdateSprint(ctx, next); err != nil {
			c.restore(ctx, written)
			return board.Sprint{}, err
		}
	}

	c.log.Debug().Ctx(ctx).Str("task_id", taskID).Str("sprint_id", sprintID).Msg("task moved to sprint")
	return next, nil
}

// MoveToBacklog removes the task from every sprint that lists it. A task
// already in the backlog is left alone.
func (c *Coordinator) MoveToBacklog(ctx context.Context, taskID string) error {
	tasks, sprints, err := c.load(ctx)
	if err != nil {
		return fmt.Errorf("move task to backlog: %w", err)
	}

	if _, ok := board.FindTask(tasks, taskID); !ok {
		return fmt.Errorf("move task to backlog: %w", board.NotFound("task", taskID))
	}

	holders := board.Holders(taskID, sprints)
	if len(holders) == 0 {
		return nil
	}
	if len(holders) > 1 {
		c.log.Warn().Ctx(ctx).Str("task_id", taskID).Int("holders", len(holders)).Msg("task listed in several sprints, repairing")
	}

	if _, err := c.strip(ctx, taskID, holders); err != nil {
		return fmt.Errorf("move task to backlog: %w", err)
	}

	c.log.Debug().Ctx(ctx).Str("task_id", taskID).Msg("task moved to backlog")
	return nil
}

// Reorder moves sourceID to the position of targetID within the sprint's
// task list. Unknown or equal ids leave the sprint untouched, issue no
// write, and report changed as false.
func (c *Coordinator) Reorder(ctx context.Context, sprintID, sourceID, targetID string) (sp board.Sprint, changed bool, err error) {
	sprints, err := c.store.FetchSprints(ctx)
	if err != nil {
		return board.Sprint{}, false, fmt.Errorf("reorder sprint: %w", err)
	}

	sp, ok := board.FindSprint(sprints, sprintID)
	if !ok {
		return board.Sprint{}, false, fmt.Errorf("reorder sprint: %w", board.NotFound("sprint", sprintID))
	}

	next := sp.Clone()
	next.TaskIDs = ordering.ReorderIDs(sp.TaskIDs, sourceID, targetID)
	if !ordering.Changed(sp.TaskIDs, next.TaskIDs) {
		return sp, false, nil
	}

	if err := c.store.UpdateSprint(ctx, next); err != nil {
		return board.Sprint{}, false, fmt.Errorf("reorder sprint: %w", err)
	}

	c.log.Debug().Ctx(ctx).Str("sprint_id", sprintID).Str("source", sourceID).Str("target", targetID).Msg("sprint reordered")
	return next, true, nil
}

// DeleteTask removes the task and strips its id from every sprint. The store
// performs both in one logical step.
func (c *Coordinator) DeleteTask(ctx context.Context, taskID string) error {
	tasks, err := c.store.FetchTasks(ctx)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if _, ok := board.FindTask(tasks, taskID); !ok {
		return fmt.Errorf("delete task: %w", board.NotFound("task", taskID))
	}

	if err := c.store.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	c.log.Debug().Ctx(ctx).Str("task_id", taskID).Msg("task deleted")
	return nil
}

// DeleteSprint removes the sprint. Its tasks fall back into the backlog.
func (c *Coordinator) DeleteSprint(ctx context.Context, sprintID string) error {
	if err := c.store.DeleteSprint(ctx, sprintID); err != nil {
		return fmt.Errorf("delete sprint: %w", err)
	}

	c.log.Debug().Ctx(ctx).Str("sprint_id", sprintID).Msg("sprint deleted")
	return nil
}

// Backlog returns the tasks no sprint lists, derived from fresh reads.
func (c *Coordinator) Backlog(ctx context.Context) ([]board.Task, error) {
	tasks, sprints, err := c.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("derive backlog: %w", err)
	}
	return board.Backlog(tasks, sprints), nil
}

func (c *Coordinator) load(ctx context.Context) ([]board.Task, []board.Sprint, error) {
	tasks, err := c.store.FetchTasks(ctx)
	if err != nil {
		return nil, nil, err
	}
	sprints, err := c.store.FetchSprints(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tasks, sprints, nil
}

// strip writes each holder back without taskID. On failure the holders
// already written are restored. It returns the original state of every
// sprint it changed.
func (c *Coordinator) strip(ctx context.Context, taskID string, holders []board.Sprint) ([]board.Sprint, error) {
	written := make([]board.Sprint, 0, len(holders))
	for _, h := range holders {
		if err := c.store.UpdateSprint(ctx, h.WithoutTask(taskID)); err != nil {
			c.restore(ctx, written)
			return nil, err
		}
		written = append(written, h)
	}
	return written, nil
}

// restore writes back the original sprints after a later step failed.
// Failures are logged; the caller already reports the first error.
func (c *Coordinator) restore(ctx context.Context, originals []board.Sprint) {
	for _, sp := range originals {
		if err := c.store.UpdateSprint(ctx, sp); err != nil {
			c.log.Error().Ctx(ctx).Err(err).Str("sprint_id", sp.ID).Msg("restore sprint after failed move")
		}
	}
}
