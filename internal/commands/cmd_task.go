package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/users"
	"github.com/colonyops/backlog/internal/core/validate"
	"github.com/colonyops/backlog/internal/planner"
	"github.com/colonyops/backlog/internal/printer"
	"github.com/colonyops/backlog/pkg/iojson"
)

type TaskCmd struct {
	flags *Flags
	app   *planner.App

	// create/edit flags
	title       string
	description string
	priority    string
	points      int
	status      string
	assignees   []string
	sprint      string

	// ls flags
	match      string
	assignee   string
	jsonOutput bool

	yes    bool
	reader iojson.FileReader[[]planner.TaskInput]
}

// NewTaskCmd creates a new task command
func NewTaskCmd(flags *Flags, app *planner.App) *TaskCmd {
	return &TaskCmd{flags: flags, app: app}
}

// Register adds the task command to the application
func (cmd *TaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "task",
		Aliases:   []string{"t"},
		Usage:     "Create and manage tasks",
		UsageText: "backlog task <command> [options]",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Aliases:   []string{"new"},
				Usage:     "Create a task in the backlog",
				UsageText: "backlog task create [--title <title>] [--sprint <sprint>] [options]",
				Description: `Creates a task in the product backlog, or directly in a sprint with
--sprint. The sprint may be given by id, id prefix, or name.

When --title is omitted, an interactive form prompts for input. Aborting the
form creates nothing.`,
				Flags: append(cmd.taskFlags(),
					&cli.StringFlag{
						Name:        "sprint",
						Usage:       "create the task in this sprint instead of the backlog",
						Destination: &cmd.sprint,
					},
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "print the created task as JSON",
						Destination: &cmd.jsonOutput,
					},
				),
				Action: cmd.runCreate,
			},
			{
				Name:      "ls",
				Aliases:   []string{"list"},
				Usage:     "List tasks",
				UsageText: "backlog task ls [--match <glob>] [--status <status>] [--assignee <id>] [--json]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "match",
						Aliases:     []string{"m"},
						Usage:       "glob matched against the lower-cased title, e.g. '*docs*'",
						Destination: &cmd.match,
					},
					&cli.StringFlag{
						Name:        "status",
						Aliases:     []string{"s"},
						Usage:       "only tasks with this status (todo, in-progress, done)",
						Destination: &cmd.status,
					},
					&cli.StringFlag{
						Name:        "assignee",
						Aliases:     []string{"a"},
						Usage:       "only tasks assigned to this user id",
						Destination: &cmd.assignee,
					},
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
				Usage:         "Show a task",
				UsageText:     "backlog task show <task-id> [--json]",
				ShellComplete: TaskIDCompleter(cmd.app),
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
				Name:      "edit",
				Usage:     "Edit a task",
				UsageText: "backlog task edit <task-id> [options]",
				Description: `Updates the given fields of a task. --assignee replaces the assignee list.

When no field flag is given, an interactive form is prefilled with the task.`,
				ShellComplete: TaskIDCompleter(cmd.app),
				Flags:         cmd.taskFlags(),
				Action:        cmd.runEdit,
			},
			{
				Name:          "status",
				Usage:         "Set the status of a task",
				UsageText:     "backlog task status <task-id> <todo|in-progress|done>",
				ShellComplete: cmd.completeStatus,
				Action:        cmd.runStatus,
			},
			{
				Name:          "rm",
				Aliases:       []string{"delete"},
				Usage:         "Delete a task and remove it from every sprint",
				UsageText:     "backlog task rm <task-id> [--yes]",
				ShellComplete: TaskIDCompleter(cmd.app),
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
			{
				Name:      "import",
				Usage:     "Create tasks from a JSON array",
				UsageText: "backlog task import [-f tasks.json]",
				Description: `Reads a JSON array of tasks from a file or stdin:

  [{"title": "Write docs", "priority": "high", "points": 3}]

Every entry is validated before anything is written.`,
				Flags:  []cli.Flag{cmd.reader.Flag()},
				Action: cmd.runImport,
			},
		},
	})

	return app
}

func (cmd *TaskCmd) taskFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "title",
			Aliases:     []string{"t"},
			Usage:       "task title",
			Destination: &cmd.title,
		},
		&cli.StringFlag{
			Name:        "description",
			Aliases:     []string{"d"},
			Usage:       "task description (markdown)",
			Destination: &cmd.description,
		},
		&cli.StringFlag{
			Name:        "priority",
			Aliases:     []string{"p"},
			Usage:       "high, medium, or low",
			Destination: &cmd.priority,
		},
		&cli.IntFlag{
			Name:        "points",
			Usage:       "story points",
			Destination: &cmd.points,
		},
		&cli.StringFlag{
			Name:        "status",
			Aliases:     []string{"s"},
			Usage:       "todo, in-progress, or done",
			Destination: &cmd.status,
		},
		&cli.StringSliceFlag{
			Name:        "assignee",
			Aliases:     []string{"a"},
			Usage:       "assignee user id (repeatable)",
			Destination: &cmd.assignees,
		},
	}
}

func (cmd *TaskCmd) runCreate(ctx context.Context, c *cli.Command) error {
	in := planner.TaskInput{
		Title:       cmd.title,
		Description: cmd.description,
		Priority:    board.Priority(cmd.priority),
		Points:      cmd.points,
		Status:      board.Status(cmd.status),
		Assignees:   cmd.assignees,
	}

	if cmd.sprint != "" || cmd.title == "" {
		if err := cmd.app.Board.Load(ctx); err != nil {
			return errReported(err)
		}
	}

	if cmd.sprint != "" {
		sprint, err := resolveSprint(cmd.app.Board, cmd.sprint)
		if err != nil {
			return err
		}
		in.Sprint = sprint.ID
	}

	if cmd.title == "" {
		if err := runTaskForm(&in, cmd.app.Board.Sprints()); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	task, err := cmd.app.Board.CreateTask(ctx, in)
	if err != nil {
		return errReported(err)
	}

	if cmd.jsonOutput {
		return iojson.WriteLine(c.Root().Writer, task)
	}
	printer.Ctx(ctx).Printf("%s", task.ID)
	return nil
}

func (cmd *TaskCmd) runList(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	status := board.Status(cmd.status)
	if status != "" && !status.IsValid() {
		return fmt.Errorf("invalid status %q", cmd.status)
	}

	tasks, err := planner.FilterTasks(cmd.app.Board.Tasks(), planner.TaskFilter{
		Match:    cmd.match,
		Status:   status,
		Assignee: cmd.assignee,
	})
	if err != nil {
		return err
	}

	if cmd.jsonOutput {
		return iojson.WriteLines(c.Root().Writer, tasks)
	}

	p := printer.Ctx(ctx)
	if len(tasks) == 0 {
		p.Infof("No tasks found")
		return nil
	}

	sprintNames := make(map[string]string)
	for _, sp := range cmd.app.Board.Sprints() {
		for _, id := range sp.TaskIDs {
			sprintNames[id] = sp.Name
		}
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		where := sprintNames[t.ID]
		if where == "" {
			where = p.Muted("backlog")
		}
		rows = append(rows, []string{
			shortID(t.ID),
			t.Title,
			p.Status(t.Status),
			p.Priority(t.Priority),
			strconv.Itoa(t.Points),
			where,
		})
	}
	p.Table([]string{"ID", "TITLE", "STATUS", "PRIORITY", "POINTS", "SPRINT"}, rows)
	return nil
}

func (cmd *TaskCmd) runShow(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, "task-id"); err != nil {
		return err
	}
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	task, err := resolveTask(cmd.app.Board, c.Args().First())
	if err != nil {
		return err
	}

	if cmd.jsonOutput {
		return iojson.WriteLine(c.Root().Writer, task)
	}

	names, err := users.DisplayNames(ctx, cmd.app.Users, task.Assignees)
	if err != nil {
		return fmt.Errorf("resolve assignees: %w", err)
	}

	where := "backlog"
	for _, sp := range cmd.app.Board.Sprints() {
		if sp.Contains(task.ID) {
			where = sp.Name
			break
		}
	}

	p := printer.Ctx(ctx)
	p.Heading(task.Title)
	p.Printf("%s  %s", p.Muted("id"), task.ID)
	p.Printf("%s  %s", p.Muted("status"), p.Status(task.Status))
	p.Printf("%s  %s", p.Muted("priority"), p.Priority(task.Priority))
	p.Printf("%s  %d", p.Muted("points"), task.Points)
	p.Printf("%s  %s", p.Muted("sprint"), where)
	if len(names) > 0 {
		p.Printf("%s  %s", p.Muted("assignees"), strings.Join(names, ", "))
	}
	if task.Description != "" {
		p.Printf("")
		p.Printf("%s", p.Markdown(task.Description))
	}
	return nil
}

func (cmd *TaskCmd) runEdit(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, "task-id"); err != nil {
		return err
	}
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	current, err := resolveTask(cmd.app.Board, c.Args().First())
	if err != nil {
		return err
	}

	fieldSet := false
	for _, name := range []string{"title", "description", "priority", "points", "status", "assignee"} {
		if c.IsSet(name) {
			fieldSet = true
			break
		}
	}

	var form planner.TaskInput
	if !fieldSet {
		form = planner.TaskInput{
			Title:       current.Title,
			Description: current.Description,
			Priority:    current.Priority,
			Points:      current.Points,
			Status:      current.Status,
			Assignees:   current.Assignees,
		}
		if err := runTaskForm(&form, nil); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	_, err = cmd.app.Board.EditTask(ctx, current.ID, func(t *board.Task) {
		if !fieldSet {
			t.Title = form.Title
			t.Description = form.Description
			t.Priority = form.Priority
			t.Points = form.Points
			t.Status = form.Status
			return
		}
		if c.IsSet("title") {
			t.Title = cmd.title
		}
		if c.IsSet("description") {
			t.Description = cmd.description
		}
		if c.IsSet("priority") {
			t.Priority = board.Priority(cmd.priority)
		}
		if c.IsSet("points") {
			t.Points = cmd.points
		}
		if c.IsSet("status") {
			t.Status = board.Status(cmd.status)
		}
		if c.IsSet("assignee") {
			t.Assignees = cmd.assignees
		}
	})
	return errReported(err)
}

func (cmd *TaskCmd) runStatus(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, "task-id", "status"); err != nil {
		return err
	}
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	task, err := resolveTask(cmd.app.Board, c.Args().Get(0))
	if err != nil {
		return err
	}

	_, err = cmd.app.Board.SetStatus(ctx, task.ID, board.Status(c.Args().Get(1)))
	return errReported(err)
}

// completeStatus completes the task id first, then the status.
func (cmd *TaskCmd) completeStatus(ctx context.Context, c *cli.Command) {
	if c.Args().Len() >= 1 {
		StatusCompleter(ctx, c)
		return
	}
	TaskIDCompleter(cmd.app)(ctx, c)
}

func (cmd *TaskCmd) runDelete(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, "task-id"); err != nil {
		return err
	}
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	task, err := resolveTask(cmd.app.Board, c.Args().First())
	if err != nil {
		return err
	}

	if !cmd.yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %q?", task.Title)).
			Description("The task is removed from every sprint.").
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

	return errReported(cmd.app.Board.DeleteTask(ctx, task.ID))
}

func (cmd *TaskCmd) runImport(ctx context.Context, c *cli.Command) error {
	inputs, err := cmd.reader.Read()
	if err != nil {
		return fmt.Errorf("read tasks: %w", err)
	}
	if len(inputs) == 0 {
		printer.Ctx(ctx).Infof("Nothing to import")
		return nil
	}

	created, err := cmd.app.Board.ImportTasks(ctx, inputs)
	for _, t := range created {
		printer.Ctx(ctx).Printf("%s", t.ID)
	}
	return errReported(err)
}

// runTaskForm prompts for the fields of in. Values already set on in are
// shown as defaults. When sprints is non-empty the form also asks where the
// task should land.
func runTaskForm(in *planner.TaskInput, sprints []board.Sprint) error {
	if in.Priority == "" {
		in.Priority = board.DefaultPriority
	}
	if in.Status == "" {
		in.Status = board.StatusTodo
	}
	points := strconv.Itoa(max(in.Points, board.DefaultPoints))

	statusOpts := make([]huh.Option[board.Status], 0, len(board.Statuses()))
	for _, s := range board.Statuses() {
		statusOpts = append(statusOpts, huh.NewOption(string(s), s))
	}

	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description("Short summary of the work").
				Validate(validate.Title).
				Value(&in.Title),
			huh.NewText().
				Title("Description").
				Description("Markdown is supported").
				Value(&in.Description),
		),
		huh.NewGroup(
			huh.NewSelect[board.Priority]().
				Title("Priority").
				Options(
					huh.NewOption("High", board.PriorityHigh),
					huh.NewOption("Medium", board.PriorityMedium),
					huh.NewOption("Low", board.PriorityLow),
				).
				Value(&in.Priority),
			huh.NewSelect[board.Status]().
				Title("Status").
				Options(statusOpts...).
				Value(&in.Status),
			huh.NewInput().
				Title("Points").
				Validate(validatePoints).
				Value(&points),
		),
	}

	if len(sprints) > 0 {
		sprintOpts := []huh.Option[string]{huh.NewOption("Backlog", "")}
		for _, sp := range sprints {
			sprintOpts = append(sprintOpts, huh.NewOption(sp.Name, sp.ID))
		}
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Title("Sprint").
				Options(sprintOpts...).
				Value(&in.Sprint),
		))
	}

	err := huh.NewForm(groups...).WithTheme(printer.FormTheme()).Run()
	if err != nil {
		return err
	}

	in.Points, _ = strconv.Atoi(strings.TrimSpace(points))
	return nil
}

func validatePoints(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("points must be a number")
	}
	if n < 1 {
		return fmt.Errorf("points must be at least 1")
	}
	return nil
}
