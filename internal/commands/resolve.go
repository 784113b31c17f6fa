package commands

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/planner"
)

// shortIDLen is the id prefix length shown in tables.
const shortIDLen = 8

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// errReported signals a failure the notifier has already shown to the user.
// main exits non-zero without printing it again.
func errReported(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit("", 1)
}

// resolveTask finds a cached task by full id or unique id prefix.
func resolveTask(b *planner.Service, arg string) (board.Task, error) {
	if t, err := b.Task(arg); err == nil {
		return t, nil
	}

	var matches []board.Task
	for _, t := range b.Tasks() {
		if strings.HasPrefix(t.ID, arg) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return board.Task{}, board.NotFound("task", arg)
	case 1:
		return matches[0], nil
	default:
		return board.Task{}, fmt.Errorf("task id %q is ambiguous (%d matches)", arg, len(matches))
	}
}

// resolveSprint finds a cached sprint by full id, unique id prefix, or
// case-insensitive name.
func resolveSprint(b *planner.Service, arg string) (board.Sprint, error) {
	if s, err := b.Sprint(arg); err == nil {
		return s, nil
	}

	var byPrefix, byName []board.Sprint
	for _, s := range b.Sprints() {
		if strings.HasPrefix(s.ID, arg) {
			byPrefix = append(byPrefix, s)
		}
		if strings.EqualFold(s.Name, arg) {
			byName = append(byName, s)
		}
	}

	for _, matches := range [][]board.Sprint{byPrefix, byName} {
		if len(matches) == 1 {
			return matches[0], nil
		}
		if len(matches) > 1 {
			return board.Sprint{}, fmt.Errorf("sprint %q is ambiguous (%d matches)", arg, len(matches))
		}
	}
	return board.Sprint{}, board.NotFound("sprint", arg)
}

// requireArgs returns an error naming the missing positional arguments.
func requireArgs(c *cli.Command, names ...string) error {
	if c.Args().Len() >= len(names) {
		return nil
	}
	missing := names[c.Args().Len():]
	return fmt.Errorf("missing argument(s): %s", strings.Join(missing, ", "))
}
