package planner

import (
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/metrics"
)

// SprintView is a sprint with its member tasks and derived metrics.
type SprintView struct {
	Sprint  board.Sprint          `json:"sprint"`
	Tasks   []board.Task          `json:"tasks"`
	Summary metrics.SprintSummary `json:"summary"`
	Active  bool                  `json:"active"`
}

// Overview is the project dashboard: every sprint plus the backlog.
type Overview struct {
	Sprints       []SprintView `json:"sprints"`
	Backlog       []board.Task `json:"backlog"`
	TotalTasks    int          `json:"total_tasks"`
	ActiveSprints int          `json:"active_sprints"`
}

// SprintView builds the view of one cached sprint.
func (s *Service) SprintView(id string, today board.Date) (SprintView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := board.FindSprint(s.sprints, id)
	if !ok {
		return SprintView{}, board.NotFound("sprint", id)
	}
	return buildSprintView(sp, s.tasks, today), nil
}

// Overview builds the dashboard from the cache.
func (s *Service) Overview(today board.Date) Overview {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ov := Overview{
		Sprints:    make([]SprintView, 0, len(s.sprints)),
		Backlog:    board.Backlog(s.tasks, s.sprints),
		TotalTasks: len(s.tasks),
	}
	for _, sp := range s.sprints {
		v := buildSprintView(sp, s.tasks, today)
		if v.Active {
			ov.ActiveSprints++
		}
		ov.Sprints = append(ov.Sprints, v)
	}
	return ov
}

func buildSprintView(sp board.Sprint, tasks []board.Task, today board.Date) SprintView {
	members := metrics.SprintTasks(sp, tasks)
	return SprintView{
		Sprint:  sp.Clone(),
		Tasks:   members,
		Summary: metrics.Summarize(sp, members),
		Active:  metrics.IsActive(sp, today),
	}
}

// TaskFilter narrows a task list.
type TaskFilter struct {
	// Match is a glob applied to the lower-cased title, e.g. "*docs*".
	Match    string
	Status   board.Status
	Assignee string
}

// FilterTasks returns the tasks that satisfy f, in input order.
func FilterTasks(tasks []board.Task, f TaskFilter) ([]board.Task, error) {
	pattern := strings.ToLower(f.Match)
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, board.Invalid("filter", doublestar.ErrBadPattern)
	}

	out := make([]board.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Assignee != "" && !slices.Contains(t.Assignees, f.Assignee) {
			continue
		}
		if pattern != "" {
			ok, err := doublestar.Match(pattern, strings.ToLower(t.Title))
			if err != nil {
				return nil, board.Invalid("filter", err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}
