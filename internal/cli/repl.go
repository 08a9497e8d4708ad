// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/luoli0706/Ning-Prompt/internal/config"
	"github.com/luoli0706/Ning-Prompt/internal/processor"
	"github.com/luoli0706/Ning-Prompt/internal/prompt"
)

const historyFileName = "history"

var replCommands = []string{
	"/mode ", "/template ", "/lang ", "/format ", "/temp ", "/stream ", "/raw", "/show", "/help", "/quit",
}

const replHelp = `Type a prompt and press Enter to transform it.

  /mode NAME       switch mode (enhance, generalize, weaken, repair, pruning, destroy)
  /template NAME   use a custom template
  /lang LANG       response language (origin, en, zh, ...)
  /format FORMAT   markdown or plain
  /temp N          temperature between 0 and 1
  /stream on|off   stream fragments as they arrive
  /raw             toggle markdown rendering
  /show            print the current settings
  /quit            leave (also Ctrl+D)

Ctrl+C cancels a running request.`

// runREPL reads prompts line by line with history until EOF or /quit.
func runREPL(ctx context.Context, app *App, opts runOptions) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		return completeREPL(app.Templates, input)
	})

	histPath := historyPath()
	loadHistory(line, histPath)
	defer saveHistory(line, histPath)

	fmt.Fprintf(app.Stdout, "%s %s\n",
		RenderConditional(TitleStyle, "ningprompt"),
		RenderConditional(DimStyle, "interactive session, /help for commands"))

	for {
		input, err := line.Prompt(opts.params.Mode + "> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(app.Stdout)
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			quit, err := applyREPLCommand(app, &opts, input)
			if err != nil {
				DisplayError(app.Stderr, err)
			}
			if quit {
				return nil
			}
			continue
		}

		opts.params.Prompt = input
		genCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		err = generate(genCtx, app, opts)
		cancelled := genCtx.Err() != nil && ctx.Err() == nil
		stop()
		switch {
		case cancelled:
			fmt.Fprintln(app.Stderr, RenderConditional(WarningStyle, "[Cancelled]"))
		case err != nil:
			DisplayError(app.Stderr, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// applyREPLCommand applies one slash command to opts.
func applyREPLCommand(app *App, opts *runOptions, input string) (quit bool, err error) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit", "/q":
		return true, nil
	case "/help", "/?":
		fmt.Fprintln(app.Stdout, replHelp)
	case "/show":
		printREPLSettings(app.Stdout, *opts)
	case "/mode":
		if !processor.IsBuiltinMode(arg) {
			return false, NewValidationErrorWithExample("mode", arg, "not a built-in mode", "/mode repair")
		}
		opts.params.Mode, opts.params.CustomPath = arg, ""
	case "/template":
		if arg == "" {
			return false, ErrMissingArgument("template", "/template persona")
		}
		path, err := resolveTemplate(app.Templates, arg)
		if err != nil {
			return false, err
		}
		opts.params.Mode, opts.params.CustomPath = processor.ModeCustom, path
	case "/lang":
		if arg == "" {
			return false, ErrMissingArgument("lang", "/lang zh")
		}
		opts.params.Language = arg
	case "/format":
		if arg != prompt.FormatMarkdown && arg != prompt.FormatPlain {
			return false, NewValidationErrorWithExample("format", arg, "must be markdown or plain", "/format plain")
		}
		opts.params.Format = arg
	case "/temp":
		t, err := strconv.ParseFloat(arg, 64)
		if err != nil || t < 0 || t > 1 {
			return false, NewValidationErrorWithExample("temperature", arg, "must be a number between 0 and 1", "/temp 0.7")
		}
		opts.params.Temperature = t
	case "/stream":
		on, err := parseOnOff(arg)
		if err != nil {
			return false, err
		}
		opts.stream = on
	case "/raw":
		opts.raw = !opts.raw
	default:
		return false, NewValidationErrorWithExample("command", cmd, "unknown command", "/help")
	}
	return false, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, NewValidationErrorWithExample("value", s, "must be on or off", "/stream off")
}

func printREPLSettings(w io.Writer, opts runOptions) {
	p := opts.params
	rows := [][2]string{
		{"mode", p.Mode},
		{"template", p.CustomPath},
		{"language", p.Language},
		{"format", p.Format},
		{"temperature", strconv.FormatFloat(p.Temperature, 'f', 1, 64)},
		{"stream", strconv.FormatBool(opts.stream)},
		{"raw", strconv.FormatBool(opts.raw)},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(w, "  %s%s\n", RenderLabel(r[0], 14), RenderConditional(ValueStyle, r[1]))
	}
}

// completeREPL completes slash commands, mode names and template names.
func completeREPL(templates *prompt.Loader, input string) []string {
	var out []string
	switch {
	case strings.HasPrefix(input, "/mode "):
		for _, m := range processor.Modes {
			if c := "/mode " + m.Name; strings.HasPrefix(c, input) {
				out = append(out, c)
			}
		}
	case strings.HasPrefix(input, "/template "):
		for _, t := range templates.ListCustomTemplates() {
			if c := "/template " + t.Mode; strings.HasPrefix(c, input) {
				out = append(out, c)
			}
		}
	case strings.HasPrefix(input, "/"):
		for _, c := range replCommands {
			if strings.HasPrefix(c, input) {
				out = append(out, c)
			}
		}
	}
	return out
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

func historyPath() string {
	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, historyFileName)
}

func loadHistory(line *liner.State, path string) {
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
}

// saveHistory writes the history file owner-only.
func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
