// ningprompt - prompt transformation workshop for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/luoli0706/Ning-Prompt/internal/cli"
	"github.com/luoli0706/Ning-Prompt/internal/config"
	"github.com/luoli0706/Ning-Prompt/internal/llm"
	"github.com/luoli0706/Ning-Prompt/internal/logging"
	"github.com/luoli0706/Ning-Prompt/internal/processor"
	"github.com/luoli0706/Ning-Prompt/internal/prompt"
	"github.com/luoli0706/Ning-Prompt/internal/ui/workshop"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

// run wires the components for one command and returns the exit code.
func run() int {
	loadDotEnv()

	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.GetExitCode(err)
	}
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return cli.ExitSuccess
	}

	store, err := config.Open(args.ConfigPath)
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.GetExitCode(err)
	}
	snap := store.Snapshot()

	logger, logCloser, err := newLogger(cmd, args, snap)
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.ExitConfigError
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	store.OnChange(func(c config.Config) {
		logger.Debug("config saved", "path", store.Path(), "mode", c.Generation.Mode, "theme", c.UI.Theme)
	})

	templateDir := snap.TemplateDir()
	if created, err := prompt.Seed(templateDir); err != nil {
		logger.Warn("could not seed templates", "dir", templateDir, "error", err)
	} else if len(created) > 0 {
		logger.Info("seeded built-in templates", "dir", templateDir, "count", len(created))
	}
	loader := prompt.NewLoader(templateDir, prompt.WithLogger(logger))

	client := llm.New(
		llm.WithTimeout(time.Duration(snap.API.TimeoutSecs)*time.Second),
		llm.WithLogger(logger),
	)
	defer client.Close()

	app := &cli.App{
		Store:     store,
		Templates: loader,
		Processor: processor.New(loader, client, store, processor.WithLogger(logger)),
		Logger:    logger,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}

	ctx := context.Background()
	switch cmd {
	case cli.CmdTUI:
		err = runWorkshop(app, snap.Templates.Watch)
	case cli.CmdRun:
		err = cli.HandleRun(ctx, app, args)
	case cli.CmdTemplates:
		err = cli.HandleTemplates(app, args)
	case cli.CmdConfig:
		err = cli.HandleConfig(app, args)
	case cli.CmdServe:
		err = cli.HandleServe(ctx, app, args)
	}

	switch {
	case err == nil:
		return cli.ExitSuccess
	case errors.Is(err, context.Canceled):
		return cli.ExitInterrupted
	default:
		cli.DisplayError(os.Stderr, err)
		return cli.GetExitCode(err)
	}
}

// newLogger builds the process logger. The workshop owns the screen, so it
// always logs to a file.
func newLogger(cmd cli.Command, args cli.Args, snap config.Config) (*slog.Logger, io.Closer, error) {
	opts := logging.Options{
		Level:  snap.Logging.Level,
		Format: snap.Logging.Format,
		File:   snap.LogFile(),
	}
	if args.Verbose {
		opts.Level = "debug"
	}
	if cmd == cli.CmdTUI && opts.File == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, nil, err
		}
		opts.File = filepath.Join(dir, "ningprompt.log")
	}
	return logging.New(opts, os.Stderr)
}

// runWorkshop starts the TUI, refreshing its template list on directory
// edits when watching is enabled.
func runWorkshop(app *cli.App, watch bool) error {
	opts := workshop.Options{
		Store:     app.Store,
		Generator: app.Processor,
		Templates: app.Templates,
		Logger:    app.Logger,
	}
	if watch {
		w, err := prompt.NewWatcher(app.Templates.Dir(), 0, app.Logger)
		if err != nil {
			app.Logger.Warn("template watcher disabled", "error", err)
		} else {
			defer w.Close()
			opts.Changes = w.Changes()
		}
	}
	return workshop.Run(opts)
}

// loadDotEnv loads .env from the working directory, then from the config
// directory. Variables already set in the environment win.
func loadDotEnv() {
	files := []string{".env"}
	if dir, err := config.Dir(); err == nil {
		files = append(files, filepath.Join(dir, ".env"))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}
