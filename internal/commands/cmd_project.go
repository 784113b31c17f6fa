package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/core/validate"
	"github.com/colonyops/backlog/internal/planner"
	"github.com/colonyops/backlog/internal/printer"
	"github.com/colonyops/backlog/pkg/iojson"
)

var errNoProjects = errors.New("projects require the remote backend")

type ProjectCmd struct {
	flags *Flags
	app   *planner.App

	title      string
	assignees  []string
	jsonOutput bool
}

// NewProjectCmd creates a new project command
func NewProjectCmd(flags *Flags, app *planner.App) *ProjectCmd {
	return &ProjectCmd{flags: flags, app: app}
}

// Register adds the project command to the application
func (cmd *ProjectCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "project",
		Aliases:   []string{"p"},
		Usage:     "Manage projects of the remote backend",
		UsageText: "backlog project <command> [options]",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Aliases:   []string{"new"},
				Usage:     "Create a project owned by the current user",
				UsageText: "backlog project create [--title <title>] [--assignee <id>...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "title",
						Aliases:     []string{"t"},
						Usage:       "project title",
						Destination: &cmd.title,
					},
					&cli.StringSliceFlag{
						Name:        "assignee",
						Aliases:     []string{"a"},
						Usage:       "member user id (repeatable)",
						Destination: &cmd.assignees,
					},
				},
				Action: cmd.runCreate,
			},
			{
				Name:      "ls",
				Aliases:   []string{"list"},
				Usage:     "List your projects",
				UsageText: "backlog project ls [--json]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runList,
			},
		},
	})

	return app
}

func (cmd *ProjectCmd) runCreate(ctx context.Context, c *cli.Command) error {
	if cmd.app.Projects == nil {
		return errNoProjects
	}

	if cmd.title == "" {
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Project title").
					Validate(validate.Title).
					Value(&cmd.title),
			),
		).WithTheme(printer.FormTheme()).Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	project, err := cmd.app.Projects.Create(ctx, cmd.title, cmd.assignees)
	if err != nil {
		return errReported(err)
	}

	printer.Ctx(ctx).Printf("%s", project.ID)
	return nil
}

func (cmd *ProjectCmd) runList(ctx context.Context, c *cli.Command) error {
	if cmd.app.Projects == nil {
		return errNoProjects
	}

	projects, err := cmd.app.Projects.List(ctx)
	if err != nil {
		return err
	}

	if cmd.jsonOutput {
		return iojson.WriteLines(c.Root().Writer, projects)
	}

	p := printer.Ctx(ctx)
	if len(projects) == 0 {
		p.Infof("No projects found")
		return nil
	}

	rows := make([][]string, 0, len(projects))
	for _, pr := range projects {
		title := pr.Title
		if pr.ID == cmd.app.Config.Project {
			title += " " + p.Muted("(current)")
		}
		rows = append(rows, []string{
			pr.ID,
			title,
			fmt.Sprintf("%d", len(pr.Assignees)),
			pr.CreatedAt.Format("2006-01-02"),
		})
	}
	p.Table([]string{"ID", "TITLE", "MEMBERS", "CREATED"}, rows)
	return nil
}
