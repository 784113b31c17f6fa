package board

// Backlog returns the tasks that no sprint lists, in task collection order.
// It is always derived from the inputs and never cached.
func Backlog(tasks []Task, sprints []Sprint) []Task {
	assigned := make(map[string]bool)
	for _, s := range sprints {
		for _, id := range s.TaskIDs {
			assigned[id] = true
		}
	}

	backlog := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if !assigned[t.ID] {
			backlog = append(backlog, t)
		}
	}
	return backlog
}

// Holders returns every sprint that lists taskID. Under the exclusivity
// invariant the result has at most one element.
func Holders(taskID string, sprints []Sprint) []Sprint {
	var out []Sprint
	for _, s := range sprints {
		if s.Contains(taskID) {
			out = append(out, s)
		}
	}
	return out
}

// FindTask returns the task with the given id.
func FindTask(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// FindSprint returns the sprint with the given id.
func FindSprint(sprints []Sprint, id string) (Sprint, bool) {
	for _, s := range sprints {
		if s.ID == id {
			return s, true
		}
	}
	return Sprint{}, false
}
