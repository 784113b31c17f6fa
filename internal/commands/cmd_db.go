package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/data/db"
	"github.com/colonyops/backlog/internal/data/stores"
	"github.com/colonyops/backlog/internal/planner"
	"github.com/colonyops/backlog/internal/printer"
	"github.com/colonyops/backlog/pkg/iojson"
)

type DBCmd struct {
	flags *Flags
	app   *planner.App

	steps      int
	yes        bool
	jsonOutput bool
}

// NewDBCmd creates a new db command
func NewDBCmd(flags *Flags, app *planner.App) *DBCmd {
	return &DBCmd{flags: flags, app: app}
}

// SkipsDatabase reports whether args invoke a db subcommand that must run
// without an open database.
func SkipsDatabase(args []string) bool {
	return len(args) >= 2 && args[0] == "db" && args[1] == "recover"
}

// Register adds the db command to the application
func (cmd *DBCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "db",
		Usage:     "Database maintenance",
		UsageText: "backlog db <command> [options]",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Show applied and pending migrations",
				UsageText: "backlog db status [--json]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runStatus,
			},
			{
				Name:        "rollback",
				Usage:       "Revert the most recent migrations",
				UsageText:   "backlog db rollback [--steps N] [--yes]",
				Description: "Reverts migrations newest first. Tables added by a reverted migration are dropped with their data.",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "steps",
						Aliases:     []string{"n"},
						Usage:       "number of migrations to revert",
						Value:       1,
						Destination: &cmd.steps,
					},
					&cli.BoolFlag{
						Name:        "yes",
						Aliases:     []string{"y"},
						Usage:       "skip confirmation",
						Destination: &cmd.yes,
					},
				},
				Action: cmd.runRollback,
			},
			{
				Name:      "recover",
				Usage:     "Move a corrupted database aside",
				UsageText: "backlog db recover",
				Description: `Renames the database file and its WAL/SHM siblings with a .corrupt.<timestamp>
suffix. The next command starts from an empty, freshly migrated database.`,
				Action: cmd.runRecover,
			},
		},
	})

	return app
}

func (cmd *DBCmd) runStatus(ctx context.Context, c *cli.Command) error {
	statuses, err := db.Status(ctx, cmd.app.DB.Conn())
	if err != nil {
		return fmt.Errorf("migration status: %w", err)
	}

	if cmd.jsonOutput {
		return iojson.WriteLines(c.Root().Writer, statuses)
	}

	p := printer.Ctx(ctx)
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := p.Muted("pending")
		if s.Applied {
			state = "applied"
		}
		rows = append(rows, []string{fmt.Sprintf("%04d", s.Version), s.Name, state})
	}
	p.Table([]string{"VERSION", "NAME", "STATE"}, rows)
	return nil
}

func (cmd *DBCmd) runRollback(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if !cmd.yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Revert %d migration(s)?", cmd.steps)).
			Description("Data in dropped tables is lost.").
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

	if err := db.MigrateDown(ctx, cmd.app.DB.Conn(), cmd.steps); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}

	p.Successf("Reverted %d migration(s)", cmd.steps)
	p.Printf("  %s", p.Muted("pending migrations are re-applied the next time the database is opened"))
	return nil
}

func (cmd *DBCmd) runRecover(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	backup, err := stores.RecoverFromCorruption(cmd.flags.DataDir)
	if err != nil {
		return err
	}

	p.Success("Database moved aside", backup)
	return nil
}
