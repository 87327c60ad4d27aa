// Package main is the entry point for the quote appliance.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/config"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the appliance.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdin, os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// options are the flags shared by every subcommand.
// load reads the configuration and installs the default logger.
type options struct {
	configDir string
	profile   string
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configDir, o.profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logging.SetDefault(logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}))

	return cfg, nil
}

func newCommand(in io.Reader, out io.Writer) *cli.Command {
	var opts options

	run := func(once bool) cli.ActionFunc {
		return func(ctx context.Context, _ *cli.Command) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			return serve(ctx, cfg, in, out, once)
		}
	}

	return &cli.Command{
		Name:    "quotebox",
		Usage:   "Voice-driven quote appliance",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config-dir",
				Usage:       "Directory holding base.yaml and profile files",
				Value:       "configs",
				Sources:     cli.EnvVars(config.EnvPrefix + "CONFIG_DIR"),
				Destination: &opts.configDir,
			},
			&cli.StringFlag{
				Name:        "profile",
				Aliases:     []string{"p"},
				Usage:       "Configuration profile (local, dev, prod, test)",
				Value:       "local",
				Sources:     cli.EnvVars(config.EnvPrefix + "ENVIRONMENT"),
				Destination: &opts.profile,
			},
		},
		Action: run(false),
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Listen for button presses until interrupted",
				Action: run(false),
			},
			{
				Name:   "once",
				Usage:  "Handle a single button press and exit",
				Action: run(true),
			},
			{
				Name:  "list",
				Usage: "Print the stored quotes",
				Action: func(ctx context.Context, _ *cli.Command) error {
					cfg, err := opts.load()
					if err != nil {
						return err
					}

					store := openLibrary(cfg, nil).Load(ctx)
					writeQuotes(out, store.Quotes())

					return nil
				},
			},
			{
				Name:      "forget",
				Usage:     "Delete a stored quote by id",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() == 0 {
						return errors.New("forget: an id is required")
					}

					cfg, err := opts.load()
					if err != nil {
						return err
					}

					return forget(ctx, openLibrary(cfg, nil), c.Args().Slice(), out)
				},
			},
			{
				Name:  "version",
				Usage: "Print build information",
				Action: func(_ context.Context, _ *cli.Command) error {
					fmt.Fprintf(out, "quotebox %s (commit %s, built %s)\n", Version, Commit, BuildTime)
					return nil
				},
			},
		},
	}
}

var (
	idColor     = color.New(color.FgYellow)
	authorColor = color.New(color.Faint, color.Italic)
)

func writeQuotes(out io.Writer, quotes []domain.Quote) {
	if len(quotes) == 0 {
		fmt.Fprintln(out, "no quotes stored")
		return
	}

	for _, q := range quotes {
		fmt.Fprintf(out, "%s  %s", idColor.Sprintf("%4s", q.ID()), q.Text())
		if q.Author() != "" {
			fmt.Fprintf(out, " %s", authorColor.Sprintf("(%s)", q.Author()))
		}
		fmt.Fprintln(out)
	}
}

func forget(ctx context.Context, library libraryStore, args []string, out io.Writer) error {
	id, err := domain.ParseQuoteID(strings.Join(args, " "))
	if err != nil {
		return err
	}

	store := library.Load(ctx)
	if !store.Delete(id) {
		return domain.NewNotFoundError("quote", id.String())
	}

	if err := library.Save(ctx, store); err != nil {
		return fmt.Errorf("saving quotes: %w", err)
	}

	slog.InfoContext(ctx, "quote forgotten", slog.String("id", id.String()))
	fmt.Fprintf(out, "forgot quote %s\n", id)

	return nil
}
