package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/planner"
)

// TaskIDCompleter returns a ShellCompleteFunc that suggests task ids as
// positional completions, with the title as a description.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func TaskIDCompleter(app *planner.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if completeFlags(ctx, cmd) {
			return
		}
		if err := app.Board.Load(ctx); err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, t := range app.Board.Tasks() {
			_, _ = fmt.Fprintf(w, "%s:%s\n", t.ID, t.Title)
		}
	}
}

// SprintIDCompleter suggests sprint ids, with the sprint name as a description.
func SprintIDCompleter(app *planner.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if completeFlags(ctx, cmd) {
			return
		}
		if err := app.Board.Load(ctx); err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, s := range app.Board.Sprints() {
			_, _ = fmt.Fprintf(w, "%s:%s\n", s.ID, s.Name)
		}
	}
}

// StatusCompleter suggests the task statuses.
func StatusCompleter(ctx context.Context, cmd *cli.Command) {
	if completeFlags(ctx, cmd) {
		return
	}
	w := cmd.Root().Writer
	for _, s := range board.Statuses() {
		_, _ = fmt.Fprintln(w, s)
	}
}

func completeFlags(ctx context.Context, cmd *cli.Command) bool {
	if args := cmd.Args(); args.Present() {
		last := args.Slice()[args.Len()-1]
		if len(last) > 0 && last[0] == '-' {
			cli.DefaultCompleteWithFlags(ctx, cmd)
			return true
		}
	}
	return false
}
