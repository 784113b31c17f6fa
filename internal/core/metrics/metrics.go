// Package metrics derives sprint progress figures from tasks and sprints.
// Every function is pure.
package metrics

import (
	"math"

	"github.com/colonyops/backlog/internal/core/board"
)

const day = 24 * 60 * 60 // seconds

// DurationDays returns ceil((end - start) / 1 day) over calendar dates.
// A sprint whose end precedes its start yields a non-positive value.
func DurationDays(s board.Sprint) int {
	secs := s.EndDate.Sub(s.StartDate).Seconds()
	return int(math.Ceil(secs / day))
}

// TotalPoints sums the points of all tasks.
func TotalPoints(tasks []board.Task) int {
	total := 0
	for _, t := range tasks {
		total += t.Points
	}
	return total
}

// CompletedPoints sums the points of tasks whose status is done.
func CompletedPoints(tasks []board.Task) int {
	total := 0
	for _, t := range tasks {
		if t.Status == board.StatusDone {
			total += t.Points
		}
	}
	return total
}

// ProgressPercentage returns round(completed / total * 100), or 0 when
// total is zero.
func ProgressPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// SprintTasks resolves a sprint's task ids against tasks, in sprint order.
// Ids with no matching task are skipped.
func SprintTasks(s board.Sprint, tasks []board.Task) []board.Task {
	byID := make(map[string]board.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	out := make([]board.Task, 0, len(s.TaskIDs))
	for _, id := range s.TaskIDs {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// GroupByStatus buckets tasks by status, preserving input order within each
// bucket. Every known status has an entry, possibly empty.
func GroupByStatus(tasks []board.Task) map[board.Status][]board.Task {
	groups := make(map[board.Status][]board.Task, 3)
	for _, st := range board.Statuses() {
		groups[st] = []board.Task{}
	}
	for _, t := range tasks {
		groups[t.Status] = append(groups[t.Status], t)
	}
	return groups
}

// IsActive reports whether today falls within the sprint, bounds inclusive.
func IsActive(s board.Sprint, today board.Date) bool {
	return !today.Before(s.StartDate) && !today.After(s.EndDate)
}

// ActiveSprints returns the sprints that are active on today.
func ActiveSprints(sprints []board.Sprint, today board.Date) []board.Sprint {
	var out []board.Sprint
	for _, s := range sprints {
		if IsActive(s, today) {
			out = append(out, s)
		}
	}
	return out
}

// SprintSummary is the derived view of one sprint.
type SprintSummary struct {
	SprintID        string               `json:"sprint_id"`
	DurationDays    int                  `json:"duration_days"`
	TaskCount       int                  `json:"task_count"`
	TotalPoints     int                  `json:"total_points"`
	CompletedPoints int                  `json:"completed_points"`
	Progress        int                  `json:"progress"`
	StatusCounts    map[board.Status]int `json:"status_counts"`
}

// Summarize computes the summary of a sprint given its member tasks.
func Summarize(s board.Sprint, members []board.Task) SprintSummary {
	total := TotalPoints(members)
	completed := CompletedPoints(members)

	counts := make(map[board.Status]int, 3)
	for st, ts := range GroupByStatus(members) {
		counts[st] = len(ts)
	}

	return SprintSummary{
		SprintID:        s.ID,
		DurationDays:    DurationDays(s),
		TaskCount:       len(members),
		TotalPoints:     total,
		CompletedPoints: completed,
		Progress:        ProgressPercentage(completed, total),
		StatusCounts:    counts,
	}
}
