package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/planner"
	"github.com/colonyops/backlog/internal/printer"
	"github.com/colonyops/backlog/internal/updatecheck"
)

type VersionCmd struct {
	flags   *Flags
	app     *planner.App
	version string
	build   string

	check bool
}

// NewVersionCmd creates a new version command. version is the bare release
// version; build is the full string shown to the user.
func NewVersionCmd(flags *Flags, app *planner.App, version, build string) *VersionCmd {
	return &VersionCmd{flags: flags, app: app, version: version, build: build}
}

// Register adds the version command to the application
func (cmd *VersionCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "version",
		Usage:     "Print the version and check for updates",
		UsageText: "backlog version [--check=false]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "check",
				Usage:       "query the latest release (cached for a day)",
				Value:       true,
				Destination: &cmd.check,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *VersionCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	p.Printf("backlog %s", cmd.build)

	if !cmd.check {
		return nil
	}

	if res := updatecheck.New(cmd.app.Cache).Check(ctx, cmd.version); res != nil {
		p.Infof("A newer version is available: %s (current %s)", res.Latest, res.Current)
	}
	return nil
}
