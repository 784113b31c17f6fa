package commands

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/planner"
	"github.com/colonyops/backlog/internal/printer"
	"github.com/colonyops/backlog/internal/tui"
	"github.com/colonyops/backlog/pkg/iojson"
)

type BoardCmd struct {
	flags *Flags
	app   *planner.App

	static     bool
	jsonOutput bool
}

// NewBoardCmd creates a new board command
func NewBoardCmd(flags *Flags, app *planner.App) *BoardCmd {
	return &BoardCmd{flags: flags, app: app}
}

// Register adds the board command to the application
func (cmd *BoardCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "board",
		Usage:     "Show the sprint board",
		UsageText: "backlog board [--static] [--json]",
		Description: `Opens the interactive board: the backlog followed by every sprint.

Move tasks between lists with [ and ], reorder within a sprint with J and K,
and cycle status with s. Outside a terminal, or with --static, a summary of
every sprint and the backlog is printed instead.`,
		Flags: cmd.Flags(),
		Action: cmd.Run,
	})

	return app
}

// Flags returns the board flags for registration on the root command
func (cmd *BoardCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "static",
			Usage:       "print the board instead of opening the interactive view",
			Destination: &cmd.static,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print the board as JSON",
			Destination: &cmd.jsonOutput,
		},
	}
}

// Run executes the board. Exported for use as default command.
func (cmd *BoardCmd) Run(ctx context.Context, c *cli.Command) error {
	if cmd.jsonOutput || cmd.static || !term.IsTerminal(int(os.Stdout.Fd())) {
		return cmd.runStatic(ctx, c)
	}
	return cmd.runInteractive(ctx)
}

func (cmd *BoardCmd) runInteractive(ctx context.Context) error {
	buffer := tui.NewNotificationBuffer()
	prev := cmd.app.Console.Set(buffer)
	defer cmd.app.Console.Set(prev)

	model := tui.New(ctx, cmd.app.Board, buffer)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run board: %w", err)
	}
	return nil
}

func (cmd *BoardCmd) runStatic(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Board.Load(ctx); err != nil {
		return errReported(err)
	}

	ov := cmd.app.Board.Overview(board.Today())
	if cmd.jsonOutput {
		return iojson.WriteLine(c.Root().Writer, ov)
	}

	p := printer.Ctx(ctx)
	p.Printf("%d tasks · %d sprints · %d active", ov.TotalTasks, len(ov.Sprints), ov.ActiveSprints)

	for _, v := range ov.Sprints {
		p.Printf("")
		renderSprintView(p, v)
	}

	p.Printf("")
	p.Heading(fmt.Sprintf("Backlog (%d)", len(ov.Backlog)))
	for _, t := range ov.Backlog {
		p.Printf("  %s  %s  %s  %s", p.Muted(shortID(t.ID)), t.Title, p.Priority(t.Priority), p.Muted(fmt.Sprintf("%dpt", t.Points)))
	}
	return nil
}
