// Package board defines the sprint planning domain model: tasks, sprints,
// projects, and the derived product backlog.
package board

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/hay-kot/criterio"
)

// Priority ranks a task within a list.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses returns all statuses in workflow order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

const (
	// DefaultPriority is applied when a task is created without one.
	DefaultPriority = PriorityMedium
	// DefaultPoints is applied when a task is created without points.
	DefaultPoints = 1
)

// Task is a unit of work. A task lives in the backlog unless exactly one
// sprint lists its ID.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Points      int      `json:"points"`
	Status      Status   `json:"status"`
	Assignees   []string `json:"assignees"`
	ProjectID   string   `json:"project_id,omitempty"`
}

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// WithDefaults returns a copy of t with creation defaults applied: a new ID
// when empty, medium priority, todo status, and a normalized assignee set.
// Zero points become one point; negative points are left for Validate to
// reject.
func (t Task) WithDefaults() Task {
	if t.ID == "" {
		t.ID = NewID()
	}
	t.Title = strings.TrimSpace(t.Title)
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	if t.Points == 0 {
		t.Points = DefaultPoints
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	t.Assignees = NormalizeAssignees(t.Assignees)
	return t
}

// Validate checks required fields and enum values.
func (t Task) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if strings.TrimSpace(t.Title) == "" {
		errs = errs.Append("title", fmt.Errorf("title is required"))
	}
	if !t.Priority.IsValid() {
		errs = errs.Append("priority", fmt.Errorf("invalid priority %q: must be one of high, medium, low", t.Priority))
	}
	if t.Points < 1 {
		errs = errs.Append("points", fmt.Errorf("points must be at least 1, got %d", t.Points))
	}
	if !t.Status.IsValid() {
		errs = errs.Append("status", fmt.Errorf("invalid status %q: must be one of todo, in-progress, done", t.Status))
	}

	return errs.ToError()
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	t.Assignees = slices.Clone(t.Assignees)
	return t
}

// NormalizeAssignees returns the assignee set sorted and deduplicated with
// blanks dropped. The result is never nil.
func NormalizeAssignees(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
