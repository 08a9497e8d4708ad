// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/luoli0706/Ning-Prompt/internal/config"
	"github.com/luoli0706/Ning-Prompt/internal/processor"
	"github.com/luoli0706/Ning-Prompt/internal/prompt"
)

// MaxPromptFileSize bounds prompts read from --file or stdin (1MB).
const MaxPromptFileSize = 1 << 20

// App is what command handlers work against. main wires it once.
type App struct {
	Store     *config.Store
	Templates *prompt.Loader
	Processor *processor.Processor
	Logger    *slog.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// runOptions are the per-call settings after flags and config are merged.
type runOptions struct {
	params processor.Params
	stream bool
	raw    bool
}

// =============================================================================
// RUN COMMAND
// =============================================================================

// HandleRun handles "ningprompt run". The prompt comes from the arguments,
// --file, or piped stdin; with none of those on a terminal it starts an
// interactive session.
func HandleRun(ctx context.Context, app *App, args Args) error {
	opts, err := resolveRunOptions(app, args)
	if err != nil {
		return err
	}

	text, err := readPrompt(app, args)
	if err != nil {
		return err
	}
	if text == "" && args.File == "" && isTerminal(app.Stdin) {
		return runREPL(ctx, app, opts)
	}

	opts.params.Prompt = text
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return generate(ctx, app, opts)
}

// resolveRunOptions fills every unset flag from the config.
func resolveRunOptions(app *App, args Args) (runOptions, error) {
	snap := app.Store.Snapshot()
	opts := runOptions{
		params: processor.Params{
			Mode:        args.Mode,
			Temperature: snap.Generation.Temperature,
			Language:    args.Language,
			Format:      args.Format,
		},
		stream: snap.Generation.Stream,
		raw:    args.Raw,
	}
	if opts.params.Mode == "" {
		opts.params.Mode = snap.Generation.Mode
	}
	if opts.params.Language == "" {
		opts.params.Language = snap.Generation.ResponseLanguage
	}
	if opts.params.Format == "" {
		opts.params.Format = snap.Generation.OutputFormat
	}
	if args.TemperatureSet {
		opts.params.Temperature = args.Temperature
	}
	if args.Stream != nil {
		opts.stream = *args.Stream
	}

	if args.Template != "" {
		path, err := resolveTemplate(app.Templates, args.Template)
		if err != nil {
			return opts, err
		}
		opts.params.Mode = processor.ModeCustom
		opts.params.CustomPath = path
	}
	if opts.params.Mode == processor.ModeCustom && opts.params.CustomPath == "" {
		return opts, NewValidationErrorWithExample("mode", "custom", "custom mode needs --template", "ningprompt run --template persona \"...\"")
	}
	return opts, nil
}

// resolveTemplate accepts a template name from the template directory or,
// locally, a path to any template file.
func resolveTemplate(templates *prompt.Loader, nameOrPath string) (string, error) {
	if strings.ContainsAny(nameOrPath, `/\`) {
		abs, err := filepath.Abs(nameOrPath)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", &prompt.TemplateNotFoundError{Path: abs}
		}
		return abs, nil
	}
	info, err := templates.Lookup(nameOrPath)
	if err != nil {
		return "", err
	}
	return info.Path, nil
}

// readPrompt returns the prompt text from args, --file or piped stdin.
// An empty result with a terminal stdin means "start a session".
func readPrompt(app *App, args Args) (string, error) {
	if args.Prompt != "" {
		return args.Prompt, nil
	}

	if args.File != "" {
		info, err := os.Stat(args.File)
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{Resource: "file", ID: args.File}
		}
		if err != nil {
			return "", fmt.Errorf("cannot access %s: %w", args.File, err)
		}
		if info.Size() > MaxPromptFileSize {
			return "", NewValidationError("file", args.File, fmt.Sprintf("larger than %d bytes", MaxPromptFileSize))
		}
		data, err := os.ReadFile(args.File)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args.File, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if app.Stdin == nil || isTerminal(app.Stdin) {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(app.Stdin, MaxPromptFileSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) > MaxPromptFileSize {
		return "", NewValidationError("stdin", "", fmt.Sprintf("larger than %d bytes", MaxPromptFileSize))
	}
	return strings.TrimSpace(string(data)), nil
}

// generate runs one transformation and prints the result.
func generate(ctx context.Context, app *App, opts runOptions) error {
	if err := processor.CheckReady(app.Store, opts.params.Prompt); err != nil {
		return err
	}
	log := app.logger()

	if opts.stream {
		var last string
		for fragment, err := range app.Processor.Stream(ctx, opts.params) {
			if err != nil {
				if last != "" {
					fmt.Fprintln(app.Stdout)
				}
				return err
			}
			fmt.Fprint(app.Stdout, fragment)
			last = fragment
		}
		if !strings.HasSuffix(last, "\n") {
			fmt.Fprintln(app.Stdout)
		}
		return nil
	}

	res, err := app.Processor.ProcessOnce(ctx, opts.params)
	if err != nil {
		return err
	}
	log.Debug("run complete", "request_id", res.RequestID, "mode", res.Mode, "duration", res.Duration)

	text := res.Text
	if !opts.raw && opts.params.Format != prompt.FormatPlain && isTerminal(app.Stdout) {
		text = renderMarkdown(text, terminalWidth(app.Stdout))
	}
	fmt.Fprint(app.Stdout, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(app.Stdout)
	}
	return nil
}
