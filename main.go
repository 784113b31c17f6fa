package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/backlog/internal/commands"
	"github.com/colonyops/backlog/internal/core/auth"
	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/config"
	"github.com/colonyops/backlog/internal/core/kv"
	"github.com/colonyops/backlog/internal/core/logging"
	"github.com/colonyops/backlog/internal/core/notify"
	"github.com/colonyops/backlog/internal/core/users"
	"github.com/colonyops/backlog/internal/data/db"
	"github.com/colonyops/backlog/internal/data/stores"
	"github.com/colonyops/backlog/internal/planner"
	"github.com/colonyops/backlog/internal/planner/sweep"
	"github.com/colonyops/backlog/internal/printer"
	"github.com/colonyops/backlog/internal/store/jsonfile"
	"github.com/colonyops/backlog/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() falls back
	// to runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

const sweepInterval = 5 * time.Minute

func releaseVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if mv := info.Main.Version; mv != "" && mv != "(devel)" {
			return mv
		}
	}
	return version
}

func build() string {
	c, d := commit, date

	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", releaseVersion(), short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser   func()
		backlogApp  = &planner.App{}
		database    *db.DB
		sweepCancel context.CancelFunc
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "backlog",
		Usage:     "Plan sprints from a shared backlog",
		UsageText: "backlog [global options] command [command options]",
		Description: `Backlog tracks tasks and time-boxed sprints.

Tasks start in the backlog and are planned into sprints, where their order
is kept. Data lives either in a shared SQLite database scoped by project
(--backend remote) or in a per-user key-value store (--backend local).

Run 'backlog' with no arguments to open the interactive board.`,
		Version:        build(),
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("BACKLOG_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file",
				Sources:     cli.EnvVars("BACKLOG_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("BACKLOG_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("BACKLOG_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "backend",
				Usage:       "storage backend (remote, local)",
				Sources:     cli.EnvVars("BACKLOG_BACKEND"),
				Destination: &flags.Backend,
			},
			&cli.StringFlag{
				Name:        "user",
				Usage:       "acting user id",
				Sources:     cli.EnvVars("BACKLOG_USER"),
				Destination: &flags.User,
			},
			&cli.StringFlag{
				Name:        "project",
				Usage:       "project id for the remote backend",
				Sources:     cli.EnvVars("BACKLOG_PROJECT"),
				Destination: &flags.Project,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir, flags.ConfigOptions()...)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			ctx = printer.WithContext(ctx, printer.New(os.Stdout, os.Stderr))

			if commands.SkipsDatabase(c.Args().Slice()) {
				backlogApp.Config = cfg
				return ctx, nil
			}

			database, err = db.Open(cfg.DataDir, cfg.Database.OpenOptions())
			if err != nil {
				if stores.IsCorruptionError(err) {
					return ctx, fmt.Errorf("open database: %w\nrun 'backlog db recover' to move the damaged file aside", err)
				}
				return ctx, fmt.Errorf("open database: %w", err)
			}

			kvStore := stores.NewKVStore(database)

			sweepCtx, cancel := context.WithCancel(context.Background())
			sweepCancel = cancel
			go sweep.Start(sweepCtx, kvStore, sweepInterval)

			console := &notify.Switch{}
			console.Set(printer.New(os.Stderr, os.Stderr))

			notifier := notify.Multi{
				console,
				notify.LogNotifier{Logger: logging.Component("notify")},
			}

			var history notify.Store
			if cfg.Notifications.History {
				history = stores.NewNotifyStore(database)
				notifier = append(notifier, notify.StoreNotifier{Store: history, UserID: cfg.User})
			}

			provider := auth.NewStatic(cfg.User, cfg.Users)

			var (
				boardStore board.Store
				projects   *planner.ProjectService
			)

			switch cfg.Backend {
			case config.BackendLocal:
				var localKV kv.KV = kvStore
				if cfg.Local.Driver == config.LocalDriverFile {
					fileKV := jsonfile.NewKV(cfg.LocalFile())
					go sweep.Start(sweepCtx, fileKV, sweepInterval)
					localKV = fileKV
				}

				local, err := stores.NewLocalStore(ctx, localKV, cfg.User)
				if err != nil {
					return ctx, fmt.Errorf("open local store: %w", err)
				}
				boardStore = local
			default:
				boardStore = stores.NewRemoteStore(database, cfg.Project)
				projects = planner.NewProjectService(stores.NewProjectStore(database), provider, notifier)
				ctx = logging.WithProjectID(ctx, cfg.Project)
			}
			ctx = logging.WithUserID(ctx, cfg.User)

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*backlogApp = planner.App{
				Board:    planner.NewService(boardStore, notifier),
				Projects: projects,
				Console:  console,
				History:  history,
				Users:    users.NewStatic(cfg.Users),
				Auth:     provider,
				Cache:    kvStore,
				Config:   cfg,
				DB:       database,
			}

			log.Debug().
				Str("backend", string(cfg.Backend)).
				Str("data_dir", cfg.DataDir).
				Msg("backlog ready")

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if sweepCancel != nil {
				sweepCancel()
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	boardCmd := commands.NewBoardCmd(flags, backlogApp)

	app = commands.NewTaskCmd(flags, backlogApp).Register(app)
	app = commands.NewSprintCmd(flags, backlogApp).Register(app)
	app = commands.NewMoveCmd(flags, backlogApp).Register(app)
	app = commands.NewProjectCmd(flags, backlogApp).Register(app)
	app = boardCmd.Register(app)
	app = commands.NewDBCmd(flags, backlogApp).Register(app)
	app = commands.NewNotificationsCmd(flags, backlogApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)
	app = commands.NewVersionCmd(flags, backlogApp, releaseVersion(), build()).Register(app)

	// Register board flags on root command
	app.Flags = append(app.Flags, boardCmd.Flags()...)

	// Open the board when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'backlog --help' for usage", c.Args().First())
		}
		return boardCmd.Run(ctx, c)
	}

	exitCode := 0
	if runErr := app.Run(ctx, os.Args); runErr != nil {
		exitCode = 1

		var exitErr cli.ExitCoder
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		if msg := runErr.Error(); msg != "" {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, msg)
		}
	}

	os.Exit(exitCode)
}
