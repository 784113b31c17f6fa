package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/metrics"
	"github.com/colonyops/backlog/internal/planner"
	"github.com/colonyops/backlog/internal/printer"
	"github.com/colonyops/backlog/pkg/iojson"
)

// defaultSprintLength is the span suggested by the create form.
const defaultSprintLength = 13 * 24 * time.Hour

type SprintCmd struct {
	flags *Flags
	app   *planner.App

	name       string
	start      string
	end        string
	jsonOutput bool
	yes        bool
}

// NewSprintCmd creates a new sprint command
func NewSprintCmd(flags *Flags, app *planner.App) *SprintCmd {
	return &SprintCmd{flags: flags, app: app}
}

// Register adds the sprint command to the application
func (cmd *SprintCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "sprint",
		Aliases:   []string{"s"},
		Usage:     "Create and inspect sprints",
		UsageText: "backlog sprint <command> [options]",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Aliases:   []string{"new"},
				Usage:     "Create an empty sprint",
				UsageText: "backlog sprint create --name <name> --start YYYY-MM-DD --end YYYY-MM-DD",
				Description: `Creates an empty sprint. Dates are calendar days in YYYY-MM-DD form.

When --name is omitted, an interactive form prompts for input.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "name",
						Aliases:     []string{"n"},
						Usage:       "sprint name",
						Destination: &cmd.name,
					},
					&cli.StringFlag{
						Name:        "start",
						Usage:       "first day (YYYY-MM-DD)",
						Destination: &cmd.start,
					},
					&cli.StringFlag{
						Name:        "end",
						Usage:       "last day (YYYY-MM-DD)",
						Destination: &cmd.end,
					},
				},
				Action: cmd.runCreate,
			},
			{
				Name:      "ls",
				Aliases:   []string{"list"},
				Usage:     "List sprints with progress",
				UsageText: "backlog sprint ls [--json]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:          "show",
				Usage:         "Show a sprint's tasks grouped by status",
				UsageText:     "backlog sprint show <sprint> [--json]",
				ShellComplete: SprintIDCompleter(cmd.app),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runShow,
			},
			{
				Name:          "add",
				Usage:         "Add a task to a sprint",
				UsageText:     "backlog sprint add <sprint> <task-id>",
				Description:   "Adds a task to the end of a sprint. A task already in another sprint is moved.",
				ShellComplete: SprintIDCompleter(cmd.app),
				Action:        cmd.runAdd,
			},
			{
				Name:          "rm",
				Aliases:       []string{"delete"},
				Usage:         "Delete a sprint; its tasks return to the backlog",
				UsageText:     "backlog sprint rm <sprint> [--yes]",
				ShellComplete: SprintIDCompleter(cmd.app),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "yes",
						Aliases:     []string{"y"},
						Usage:       "skip confirmation",
						Destination: &cmd.yes,
					},
				},
				Action: cmd.runDelete,
			},
		},
	})

	return app
}

func (cmd *SprintCmd) runCreate(ctx context.Context, c *cli.Command) error {
	if cmd.name == "" {
		if err := cmd.runForm(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	in, err := sprintInput(cmd.name, cmd.start, cmd.end)
	if err != nil {
		return err
	}

	sprint, err := cmd.app.Board.CreateSprint(ctx, in)
	if err != nil {
		return errReported(err)
	}

	printer.Ctx(ctx).Printf("%s", sprint.ID)
	return nil
}

func (cmd *SprintCmd) runForm() error {
	today := board.Today()
	if cmd.start == "" {
		cmd.start = today.String()
	}
	if cmd.end == "" {
		cmd.end = board.DateOf(today.Time().Add(defaultSprintLength)).String()
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sprint name").
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}).
				Value(&cmd.name),
			huh.NewInput().
				Title("Start date").
				Description("YYYY-MM-DD").
				Validate(validateDate).
				Value(&cmd.start),
			huh.NewInput().
				Title("End date").
				Description("YYYY-MM-DD").
				Validate(validateDate).
				Value(&cmd.end),
		),
	).WithTheme(printer.FormTheme()).Run()
}

func validateDate(s string) error {
	_, err := board.ParseDate(s)
	return err
}

func sprintInput(name, start, end string) (planner.SprintInput, error) {
	in := planner.SprintInput{Name: name}
	if start != "" {
		d, err := board.ParseDate(start)
		if err != nil {
			return in, fmt.Errorf("start: %w", err)
		}
		in.StartDate = d
	}
	if end != "" {
		d, err := board.ParseDate(end)
		if err != nil {
			return in, fmt.Errorf("end: %w", err)
		}
		in.EndDate = d
	}
	return in, nil
}

func (cmd *SprintCmd) runList(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	ov := cmd.app.Board.Overview(board.Today())
	if cmd.jsonOutput {
		return iojson.WriteLines(c.Root().Writer, ov.Sprints)
	}

	p := printer.Ctx(ctx)
	if len(ov.Sprints) == 0 {
		p.Infof("No sprints found")
		return nil
	}

	rows := make([][]string, 0, len(ov.Sprints))
	for _, v := range ov.Sprints {
		name := v.Sprint.Name
		if v.Active {
			name += " " + p.Muted("(active)")
		}
		rows = append(rows, []string{
			shortID(v.Sprint.ID),
			name,
			v.Sprint.StartDate.String(),
			v.Sprint.EndDate.String(),
			strconv.Itoa(len(v.Tasks)),
			fmt.Sprintf("%d/%d", v.Summary.CompletedPoints, v.Summary.TotalPoints),
			p.ProgressBar(v.Summary.Progress, 10),
		})
	}
	p.Table([]string{"ID", "NAME", "START", "END", "TASKS", "POINTS", "PROGRESS"}, rows)
	return nil
}

func (cmd *SprintCmd) runShow(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, "sprint"); err != nil {
		return err
	}
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	sprint, err := resolveSprint(cmd.app.Board, c.Args().First())
	if err != nil {
		return err
	}
	view, err := cmd.app.Board.SprintView(sprint.ID, board.Today())
	if err != nil {
		return err
	}

	if cmd.jsonOutput {
		return iojson.WriteLine(c.Root().Writer, view)
	}

	p := printer.Ctx(ctx)
	renderSprintView(p, view)
	return nil
}

func renderSprintView(p *printer.Printer, v planner.SprintView) {
	title := v.Sprint.Name
	if v.Active {
		title += " (active)"
	}
	p.Heading(title)
	p.Printf("%s  %s → %s (%d days)", p.Muted("dates"), v.Sprint.StartDate, v.Sprint.EndDate, v.Summary.DurationDays)
	p.Printf("%s  %d/%d  %s", p.Muted("points"), v.Summary.CompletedPoints, v.Summary.TotalPoints, p.ProgressBar(v.Summary.Progress, 20))

	if len(v.Tasks) == 0 {
		p.Printf("")
		p.Infof("No tasks in this sprint")
		return
	}

	groups := metrics.GroupByStatus(v.Tasks)
	for _, status := range board.Statuses() {
		tasks := groups[status]
		p.Printf("")
		p.Printf("%s (%d)", p.Status(status), len(tasks))
		for _, t := range tasks {
			p.Printf("  %s  %s  %s", p.Muted(shortID(t.ID)), t.Title, p.Muted(fmt.Sprintf("%dpt", t.Points)))
		}
	}
}

func (cmd *SprintCmd) runAdd(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, "sprint", "task-id"); err != nil {
		return err
	}
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	sprint, err := resolveSprint(cmd.app.Board, c.Args().Get(0))
	if err != nil {
		return err
	}
	task, err := resolveTask(cmd.app.Board, c.Args().Get(1))
	if err != nil {
		return err
	}

	_, err = cmd.app.Board.AddTaskToSprint(ctx, sprint.ID, task.ID)
	return errReported(err)
}

func (cmd *SprintCmd) runDelete(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, "sprint"); err != nil {
		return err
	}
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	sprint, err := resolveSprint(cmd.app.Board, c.Args().First())
	if err != nil {
		return err
	}

	if !cmd.yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete sprint %q?", sprint.Name)).
			Description(fmt.Sprintf("%d task(s) return to the backlog.", len(sprint.TaskIDs))).
			Value(&confirmed).
			WithTheme(printer.FormTheme()).
			Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("confirm: %w", err)
		}
		if !confirmed {
			return nil
		}
	}

	return errReported(cmd.app.Board.DeleteSprint(ctx, sprint.ID))
}
