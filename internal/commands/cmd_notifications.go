package commands

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/core/notify"
	"github.com/colonyops/backlog/internal/planner"
	"github.com/colonyops/backlog/internal/printer"
	"github.com/colonyops/backlog/pkg/iojson"
)

var errNoHistory = errors.New("notification history is disabled (notifications.history: false)")

type NotificationsCmd struct {
	flags *Flags
	app   *planner.App

	limit      int
	jsonOutput bool
}

// NewNotificationsCmd creates a new notifications command
func NewNotificationsCmd(flags *Flags, app *planner.App) *NotificationsCmd {
	return &NotificationsCmd{flags: flags, app: app}
}

// Register adds the notifications command to the application
func (cmd *NotificationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "notifications",
		Aliases:   []string{"notif"},
		Usage:     "Show or clear the notification history",
		UsageText: "backlog notifications <command>",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Aliases:   []string{"list"},
				Usage:     "List recent notifications, newest first",
				UsageText: "backlog notifications ls [--limit N] [--json]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "limit",
						Aliases:     []string{"n"},
						Usage:       "maximum number of notifications (defaults to notifications.limit)",
						Destination: &cmd.limit,
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
				Name:      "clear",
				Usage:     "Delete all notifications",
				UsageText: "backlog notifications clear",
				Action:    cmd.runClear,
			},
		},
	})

	return app
}

func (cmd *NotificationsCmd) runList(ctx context.Context, c *cli.Command) error {
	if cmd.app.History == nil {
		return errNoHistory
	}

	limit := cmd.limit
	if limit <= 0 {
		limit = cmd.app.Config.Notifications.Limit
	}

	items, err := cmd.app.History.List(ctx, limit)
	if err != nil {
		return err
	}

	if cmd.jsonOutput {
		return iojson.WriteLines(c.Root().Writer, items)
	}

	p := printer.Ctx(ctx)
	if len(items) == 0 {
		p.Infof("No notifications")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, n := range items {
		rows = append(rows, []string{
			n.CreatedAt.Format("2006-01-02 15:04:05"),
			levelLabel(p, n.Level),
			n.Title,
			n.Description,
		})
	}
	p.Table([]string{"TIME", "LEVEL", "TITLE", "DETAIL"}, rows)
	return nil
}

func levelLabel(p *printer.Printer, l notify.Level) string {
	if l == notify.LevelInfo {
		return p.Muted(string(l))
	}
	return string(l)
}

func (cmd *NotificationsCmd) runClear(ctx context.Context, c *cli.Command) error {
	if cmd.app.History == nil {
		return errNoHistory
	}

	count, err := cmd.app.History.Count(ctx)
	if err != nil {
		return err
	}
	if err := cmd.app.History.Clear(ctx); err != nil {
		return err
	}

	printer.Ctx(ctx).Successf("Cleared %d notification(s)", count)
	return nil
}
