package board

import "context"

// Store is the persistence contract shared by the remote and local backends.
// The planner issues the same call sequence whichever backend is active.
//
// Failures other than a missing entity wrap ErrPersistence.
type Store interface {
	// FetchTasks returns all tasks in a stable order.
	FetchTasks(ctx context.Context) ([]Task, error)

	// FetchSprints returns all sprints ordered by start date ascending.
	FetchSprints(ctx context.Context) ([]Sprint, error)

	// CreateTask persists a new task.
	CreateTask(ctx context.Context, task Task) error

	// UpdateTask replaces an existing task. Returns ErrNotFound if absent.
	UpdateTask(ctx context.Context, task Task) error

	// DeleteTask removes a task and strips its id from every sprint in the
	// same logical step. Returns ErrNotFound if absent.
	DeleteTask(ctx context.Context, id string) error

	// CreateSprint persists a new sprint.
	CreateSprint(ctx context.Context, sprint Sprint) error

	// UpdateSprint replaces the whole sprint row, including its ordered task
	// list. Returns ErrNotFound if absent.
	UpdateSprint(ctx context.Context, sprint Sprint) error

	// DeleteSprint removes a sprint. Member tasks are untouched and fall back
	// into the backlog. Returns ErrNotFound if absent.
	DeleteSprint(ctx context.Context, id string) error
}
