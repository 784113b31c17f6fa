package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/backlog/internal/core/board"
)

func sprint(start, end string) board.Sprint {
	return board.Sprint{ID: "s1", StartDate: board.MustParseDate(start), EndDate: board.MustParseDate(end)}
}

func TestDurationDays(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		want       int
	}{
		{"two weeks", "2025-01-06", "2025-01-20", 14},
		{"same day", "2025-01-06", "2025-01-06", 0},
		{"across month", "2025-01-30", "2025-02-02", 3},
		{"leap day", "2024-02-28", "2024-03-01", 2},
		{"reversed", "2025-01-10", "2025-01-06", -4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationDays(sprint(tt.start, tt.end)))
		})
	}
}

func TestPoints(t *testing.T) {
	tasks := []board.Task{
		{ID: "a", Points: 3, Status: board.StatusDone},
		{ID: "b", Points: 5, Status: board.StatusInProgress},
		{ID: "c", Points: 2, Status: board.StatusDone},
	}

	assert.Equal(t, 10, TotalPoints(tasks))
	assert.Equal(t, 5, CompletedPoints(tasks))
	assert.Equal(t, 0, TotalPoints(nil))
	assert.Equal(t, 0, CompletedPoints(nil))
}

func TestProgressPercentage(t *testing.T) {
	assert.Equal(t, 0, ProgressPercentage(0, 0))
	assert.Equal(t, 50, ProgressPercentage(5, 10))
	assert.Equal(t, 100, ProgressPercentage(3, 3))
	assert.Equal(t, 33, ProgressPercentage(1, 3))
	assert.Equal(t, 67, ProgressPercentage(2, 3))
}

func TestSprintTasks(t *testing.T) {
	tasks := []board.Task{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	s := board.Sprint{TaskIDs: []string{"c", "missing", "a"}}

	got := SprintTasks(s, tasks)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestGroupByStatus(t *testing.T) {
	groups := GroupByStatus([]board.Task{
		{ID: "a", Status: board.StatusTodo},
		{ID: "b", Status: board.StatusDone},
		{ID: "c", Status: board.StatusTodo},
	})

	assert.Len(t, groups[board.StatusTodo], 2)
	assert.Empty(t, groups[board.StatusInProgress])
	assert.NotNil(t, groups[board.StatusInProgress])
	assert.Len(t, groups[board.StatusDone], 1)
}

func TestActiveSprints(t *testing.T) {
	sprints := []board.Sprint{
		{ID: "past", StartDate: board.NewDate(2025, 1, 1), EndDate: board.NewDate(2025, 1, 14)},
		{ID: "current", StartDate: board.NewDate(2025, 1, 15), EndDate: board.NewDate(2025, 1, 28)},
		{ID: "future", StartDate: board.NewDate(2025, 2, 1), EndDate: board.NewDate(2025, 2, 14)},
	}

	active := ActiveSprints(sprints, board.NewDate(2025, 1, 15))
	require.Len(t, active, 1)
	assert.Equal(t, "current", active[0].ID)

	assert.True(t, IsActive(sprints[1], board.NewDate(2025, 1, 28)), "end date is inclusive")
	assert.Empty(t, ActiveSprints(sprints, board.NewDate(2025, 1, 30)))
}

func TestSummarize_SingleDoneTask(t *testing.T) {
	s := sprint("2025-01-06", "2025-01-20")
	s.TaskIDs = []string{"t1"}
	t1 := board.Task{ID: "t1", Points: 3, Status: board.StatusDone}

	sum := Summarize(s, []board.Task{t1})
	assert.Equal(t, 3, sum.CompletedPoints)
	assert.Equal(t, 3, sum.TotalPoints)
	assert.Equal(t, 100, sum.Progress)
	assert.Equal(t, 14, sum.DurationDays)
	assert.Equal(t, 1, sum.StatusCounts[board.StatusDone])
	assert.Equal(t, 0, sum.StatusCounts[board.StatusTodo])
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(sprint("2025-01-06", "2025-01-20"), nil)
	assert.Equal(t, 0, sum.Progress)
	assert.Equal(t, 0, sum.TaskCount)
}
