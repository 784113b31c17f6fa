package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/planner"
	"github.com/colonyops/backlog/internal/printer"
	"github.com/colonyops/backlog/pkg/iojson"
)

type MoveCmd struct {
	flags *Flags
	app   *planner.App

	sprint     string
	toBacklog  bool
	jsonOutput bool
}

// NewMoveCmd creates the move, reorder, and backlog commands
func NewMoveCmd(flags *Flags, app *planner.App) *MoveCmd {
	return &MoveCmd{flags: flags, app: app}
}

// Register adds the move, reorder, and backlog commands to the application
func (cmd *MoveCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "move",
			Aliases:   []string{"mv"},
			Usage:     "Move a task into a sprint or back to the backlog",
			UsageText: "backlog move <task-id> (--sprint <sprint> | --backlog)",
			Description: `Moves a task. A task belongs to at most one sprint, so moving it into a
sprint removes it from any sprint that held it. --backlog removes it from
every sprint.`,
			ShellComplete: TaskIDCompleter(cmd.app),
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "sprint",
					Aliases:     []string{"s"},
					Usage:       "target sprint id, id prefix, or name",
					Destination: &cmd.sprint,
				},
				&cli.BoolFlag{
					Name:        "backlog",
					Aliases:     []string{"b"},
					Usage:       "move the task back to the backlog",
					Destination: &cmd.toBacklog,
				},
			},
			Action: cmd.runMove,
		},
		&cli.Command{
			Name:      "reorder",
			Usage:     "Move a task to another task's position within a sprint",
			UsageText: "backlog reorder <sprint> <source-task> <target-task>",
			Description: `Places the source task at the index the target task occupies. Tasks in
between shift by one. Both tasks must belong to the sprint.`,
			ShellComplete: SprintIDCompleter(cmd.app),
			Action:        cmd.runReorder,
		},
		&cli.Command{
			Name:      "backlog",
			Usage:     "List tasks that are not in any sprint",
			UsageText: "backlog backlog [--json]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:        "json",
					Usage:       "output as JSON lines",
					Destination: &cmd.jsonOutput,
				},
			},
			Action: cmd.runBacklog,
		},
	)

	return app
}

func (cmd *MoveCmd) runMove(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, "task-id"); err != nil {
		return err
	}
	if (cmd.sprint == "") == !cmd.toBacklog {
		return fmt.Errorf("exactly one of --sprint or --backlog is required")
	}
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	task, err := resolveTask(cmd.app.Board, c.Args().First())
	if err != nil {
		return err
	}

	if cmd.toBacklog {
		return errReported(cmd.app.Board.MoveToBacklog(ctx, task.ID))
	}

	sprint, err := resolveSprint(cmd.app.Board, cmd.sprint)
	if err != nil {
		return err
	}
	_, err = cmd.app.Board.MoveToSprint(ctx, task.ID, sprint.ID)
	return errReported(err)
}

func (cmd *MoveCmd) runReorder(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, "sprint", "source-task", "target-task"); err != nil {
		return err
	}
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	sprint, err := resolveSprint(cmd.app.Board, c.Args().Get(0))
	if err != nil {
		return err
	}
	source, err := resolveTask(cmd.app.Board, c.Args().Get(1))
	if err != nil {
		return err
	}
	target, err := resolveTask(cmd.app.Board, c.Args().Get(2))
	if err != nil {
		return err
	}

	updated, err := cmd.app.Board.Reorder(ctx, sprint.ID, source.ID, target.ID)
	if err != nil {
		return errReported(err)
	}

	p := printer.Ctx(ctx)
	for i, id := range updated.TaskIDs {
		title := id
		if t, err := cmd.app.Board.Task(id); err == nil {
			title = t.Title
		}
		p.Printf("%3d. %s", i+1, title)
	}
	return nil
}

func (cmd *MoveCmd) runBacklog(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	tasks := cmd.app.Board.Backlog()
	if cmd.jsonOutput {
		return iojson.WriteLines(c.Root().Writer, tasks)
	}

	p := printer.Ctx(ctx)
	if len(tasks) == 0 {
		p.Infof("Backlog is empty")
		return nil
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			shortID(t.ID),
			t.Title,
			p.Status(t.Status),
			p.Priority(t.Priority),
			strconv.Itoa(t.Points),
		})
	}
	p.Table([]string{"ID", "TITLE", "STATUS", "PRIORITY", "POINTS"}, rows)
	return nil
}
