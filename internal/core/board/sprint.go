package board

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hay-kot/criterio"
)

// Sprint is a time-boxed, ordered list of task IDs.
type Sprint struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	StartDate Date     `json:"startDate"`
	EndDate   Date     `json:"endDate"`
	TaskIDs   []string `json:"tasks"`
	ProjectID string   `json:"project_id,omitempty"`
}

// WithDefaults returns a copy with a generated ID when empty and a non-nil
// task list.
func (s Sprint) WithDefaults() Sprint {
	if s.ID == "" {
		s.ID = NewID()
	}
	s.Name = strings.TrimSpace(s.Name)
	if s.TaskIDs == nil {
		s.TaskIDs = []string{}
	}
	return s
}

// Validate checks the fields a caller must supply when creating a sprint.
// Stores do not call it; a sprint whose end precedes its start is persisted
// as given.
func (s Sprint) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if strings.TrimSpace(s.Name) == "" {
		errs = errs.Append("name", fmt.Errorf("name is required"))
	}
	if s.StartDate.IsZero() {
		errs = errs.Append("start_date", fmt.Errorf("start date is required"))
	}
	if s.EndDate.IsZero() {
		errs = errs.Append("end_date", fmt.Errorf("end date is required"))
	}
	if !s.StartDate.IsZero() && !s.EndDate.IsZero() && s.EndDate.Before(s.StartDate) {
		errs = errs.Append("end_date", fmt.Errorf("end date %s precedes start date %s", s.EndDate, s.StartDate))
	}

	return errs.ToError()
}

// Contains reports whether the sprint lists taskID.
func (s Sprint) Contains(taskID string) bool {
	return slices.Contains(s.TaskIDs, taskID)
}

// Clone returns a deep copy of s.
func (s Sprint) Clone() Sprint {
	s.TaskIDs = slices.Clone(s.TaskIDs)
	if s.TaskIDs == nil {
		s.TaskIDs = []string{}
	}
	return s
}

// WithoutTask returns a copy of s with every occurrence of taskID removed.
func (s Sprint) WithoutTask(taskID string) Sprint {
	out := s.Clone()
	out.TaskIDs = slices.DeleteFunc(out.TaskIDs, func(id string) bool { return id == taskID })
	return out
}

// WithTask returns a copy of s with taskID appended, or an unchanged copy
// when it is already listed.
func (s Sprint) WithTask(taskID string) Sprint {
	out := s.Clone()
	if !out.Contains(taskID) {
		out.TaskIDs = append(out.TaskIDs, taskID)
	}
	return out
}

// Dedupe returns a copy with repeated task IDs removed, keeping the first
// occurrence of each.
func (s Sprint) Dedupe() Sprint {
	out := s.Clone()
	seen := make(map[string]bool, len(out.TaskIDs))
	out.TaskIDs = slices.DeleteFunc(out.TaskIDs, func(id string) bool {
		if seen[id] {
			return true
		}
		seen[id] = true
		return false
	})
	return out
}

// SortSprints orders sprints by start date ascending, ties broken by ID.
func SortSprints(sprints []Sprint) {
	slices.SortStableFunc(sprints, func(a, b Sprint) int {
		if c := a.StartDate.Time().Compare(b.StartDate.Time()); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
