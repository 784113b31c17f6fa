package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/logging"
	"github.com/colonyops/backlog/internal/data/db"
)

// RemoteStore implements board.Store on the relational tables, scoped to a
// single project. Sprint membership updates are read-modify-write with no
// version guard; two writers racing on the same sprint resolve last write wins.
type RemoteStore struct {
	db        *db.DB
	projectID string
	log       zerolog.Logger
}

var _ board.Store = (*RemoteStore)(nil)

// NewRemoteStore creates a store that reads and writes rows of projectID.
func NewRemoteStore(database *db.DB, projectID string) *RemoteStore {
	return &RemoteStore{
		db:        database,
		projectID: projectID,
		log:       logging.Component("remote-store").With().Str("project_id", projectID).Logger(),
	}
}

// ProjectID returns the project the store is scoped to.
func (s *RemoteStore) ProjectID() string {
	return s.projectID
}

// FetchTasks returns the project's tasks in creation order.
func (s *RemoteStore) FetchTasks(ctx context.Context) ([]board.Task, error) {
	rows, err := s.db.Queries().ListTasks(ctx, s.projectID)
	if err != nil {
		return nil, board.Persistence("fetch tasks", err)
	}

	tasks := make([]board.Task, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTask(row)
		if err != nil {
			return nil, board.Persistence("fetch tasks", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// FetchSprints returns the project's sprints ordered by start date.
func (s *RemoteStore) FetchSprints(ctx context.Context) ([]board.Sprint, error) {
	rows, err := s.db.Queries().ListSprints(ctx, s.projectID)
	if err != nil {
		return nil, board.Persistence("fetch sprints", err)
	}

	sprints := make([]board.Sprint, 0, len(rows))
	for _, row := range rows {
		sp, err := rowToSprint(row)
		if err != nil {
			return nil, board.Persistence("fetch sprints", err)
		}
		sprints = append(sprints, sp)
	}
	return sprints, nil
}

func (s *RemoteStore) CreateTask(ctx context.Context, task board.Task) error {
	if task.ID == "" {
		task.ID = board.NewID()
	}

	assignees, err := marshalStrings(board.NormalizeAssignees(task.Assignees))
	if err != nil {
		return board.Persistence("create task", err)
	}

	err = s.db.Queries().CreateTask(ctx, db.CreateTaskParams{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		Points:      int64(task.Points),
		Status:      string(task.Status),
		Assignees:   assignees,
		ProjectID:   s.projectID,
		CreatedAt:   time.Now().UnixNano(),
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			err = fmt.Errorf("task %q already exists: %w", task.ID, err)
		}
		return board.Persistence("create task", err)
	}

	s.log.Debug().Str("task_id", task.ID).Msg("task created")
	return nil
}

func (s *RemoteStore) UpdateTask(ctx context.Context, task board.Task) error {
	assignees, err := marshalStrings(board.NormalizeAssignees(task.Assignees))
	if err != nil {
		return board.Persistence("update task", err)
	}

	n, err := s.db.Queries().UpdateTask(ctx, db.UpdateTaskParams{
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		Points:      int64(task.Points),
		Status:      string(task.Status),
		Assignees:   assignees,
		ID:          task.ID,
		ProjectID:   s.projectID,
	})
	if err != nil {
		return board.Persistence("update task", err)
	}
	if n == 0 {
		return board.NotFound("task", task.ID)
	}

	s.log.Debug().Str("task_id", task.ID).Msg("task updated")
	return nil
}

// DeleteTask strips the task from every sprint and removes its row in one
// transaction.
func (s *RemoteStore) DeleteTask(ctx context.Context, id string) error {
	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		if _, err := q.GetTask(ctx, db.GetTaskParams{ID: id, ProjectID: s.projectID}); err != nil {
			if IsNotFoundError(err) {
				return board.NotFound("task", id)
			}
			return err
		}

		holders, err := q.ListSprintsContainingTask(ctx, db.ListSprintsContainingTaskParams{
			ProjectID: s.projectID,
			TaskID:    id,
		})
		if err != nil {
			return fmt.Errorf("find holding sprints: %w", err)
		}

		for _, row := range holders {
			sp, err := rowToSprint(row)
			if err != nil {
				return err
			}
			ids, err := marshalStrings(sp.WithoutTask(id).TaskIDs)
			if err != nil {
				return err
			}
			if err := q.UpdateSprintTasks(ctx, db.UpdateSprintTasksParams{Tasks: ids, ID: sp.ID}); err != nil {
				return fmt.Errorf("strip task from sprint %q: %w", sp.ID, err)
			}
		}

		if _, err := q.DeleteTask(ctx, db.DeleteTaskParams{ID: id, ProjectID: s.projectID}); err != nil {
			return fmt.Errorf("delete task row: %w", err)
		}
		return nil
	})
	if err != nil {
		return board.Persistence("delete task", err)
	}

	s.log.Debug().Str("task_id", id).Msg("task deleted")
	return nil
}

func (s *RemoteStore) CreateSprint(ctx context.Context, sprint board.Sprint) error {
	if sprint.ID == "" {
		sprint.ID = board.NewID()
	}

	ids, err := marshalStrings(sprint.TaskIDs)
	if err != nil {
		return board.Persistence("create sprint", err)
	}

	err = s.db.Queries().CreateSprint(ctx, db.CreateSprintParams{
		ID:        sprint.ID,
		Name:      sprint.Name,
		StartDate: sprint.StartDate.String(),
		EndDate:   sprint.EndDate.String(),
		Tasks:     ids,
		ProjectID: s.projectID,
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			err = fmt.Errorf("sprint %q already exists: %w", sprint.ID, err)
		}
		return board.Persistence("create sprint", err)
	}

	s.log.Debug().Str("sprint_id", sprint.ID).Msg("sprint created")
	return nil
}

func (s *RemoteStore) UpdateSprint(ctx context.Context, sprint board.Sprint) error {
	ids, err := marshalStrings(sprint.TaskIDs)
	if err != nil {
		return board.Persistence("update sprint", err)
	}

	n, err := s.db.Queries().UpdateSprint(ctx, db.UpdateSprintParams{
		Name:      sprint.Name,
		StartDate: sprint.StartDate.String(),
		EndDate:   sprint.EndDate.String(),
		Tasks:     ids,
		ID:        sprint.ID,
		ProjectID: s.projectID,
	})
	if err != nil {
		return board.Persistence("update sprint", err)
	}
	if n == 0 {
		return board.NotFound("sprint", sprint.ID)
	}

	s.log.Debug().Str("sprint_id", sprint.ID).Int("tasks", len(sprint.TaskIDs)).Msg("sprint updated")
	return nil
}

func (s *RemoteStore) DeleteSprint(ctx context.Context, id string) error {
	n, err := s.db.Queries().DeleteSprint(ctx, db.DeleteSprintParams{ID: id, ProjectID: s.projectID})
	if err != nil {
		return board.Persistence("delete sprint", err)
	}
	if n == 0 {
		return board.NotFound("sprint", id)
	}

	s.log.Debug().Str("sprint_id", id).Msg("sprint deleted")
	return nil
}

func rowToTask(row db.Task) (board.Task, error) {
	assignees, err := unmarshalStrings(row.Assignees)
	if err != nil {
		return board.Task{}, fmt.Errorf("task %q assignees: %w", row.ID, err)
	}

	return board.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Priority:    board.Priority(row.Priority),
		Points:      int(row.Points),
		Status:      board.Status(row.Status),
		Assignees:   assignees,
		ProjectID:   row.ProjectID,
	}, nil
}

func rowToSprint(row db.Sprint) (board.Sprint, error) {
	start, err := board.ParseDate(row.StartDate)
	if err != nil {
		return board.Sprint{}, fmt.Errorf("sprint %q start date: %w", row.ID, err)
	}
	end, err := board.ParseDate(row.EndDate)
	if err != nil {
		return board.Sprint{}, fmt.Errorf("sprint %q end date: %w", row.ID, err)
	}
	ids, err := unmarshalStrings(row.Tasks)
	if err != nil {
		return board.Sprint{}, fmt.Errorf("sprint %q tasks: %w", row.ID, err)
	}

	return board.Sprint{
		ID:        row.ID,
		Name:      row.Name,
		StartDate: start,
		EndDate:   end,
		TaskIDs:   ids,
		ProjectID: row.ProjectID,
	}, nil
}

func marshalStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalStrings(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
