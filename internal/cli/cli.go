// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdRun
	CmdTemplates
	CmdConfig
	CmdServe
	CmdVersion
	CmdHelp
)

func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdRun:
		return "run"
	case CmdTemplates:
		return "templates"
	case CmdConfig:
		return "config"
	case CmdServe:
		return "serve"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Verbose    bool

	// run
	Prompt      string
	Mode        string
	Template    string
	Language    string
	Format      string
	Temperature float64
	// TemperatureSet distinguishes an explicit 0 from "use the config".
	TemperatureSet bool
	// Stream is nil when neither --stream nor --no-stream was given.
	Stream *bool
	File   string
	Raw    bool

	// serve
	Addr string

	// templates / config
	Subcommand string
	Positional []string
}

const usageText = `ningprompt - prompt transformation workshop

Rewrites a prompt through an OpenAI-compatible chat-completion API using a
named transformation mode.

Usage:
  ningprompt                          Start the Prompt Workshop (TUI)
  ningprompt run [flags] [PROMPT]     Transform one prompt
  ningprompt templates [list]         List template files
  ningprompt templates show NAME      Print a template
  ningprompt templates seed           Write missing built-in templates
  ningprompt templates path           Print the template directory
  ningprompt config [show]            Show configuration (secrets masked)
  ningprompt config get KEY           Print one key, e.g. api.model
  ningprompt config set KEY VALUE     Set and save one key
  ningprompt config keys              List settable keys
  ningprompt config path              Print the config file path
  ningprompt serve [--addr ADDR]      Run the HTTP/MCP service
  ningprompt version                  Print version information
  ningprompt help                     Show this help

Run flags:
  -m, --mode MODE          enhance, generalize, weaken, repair, pruning,
                           destroy or custom (default from config)
      --template NAME      custom template name or path (implies custom)
  -t, --temperature N      0 to 1 (default from config)
  -l, --lang LANG          origin, en, zh or any language name
  -f, --format FORMAT      markdown or plain
      --stream             print fragments as they arrive
      --no-stream          wait for the full result
      --file PATH          read the prompt from a file
      --raw                print the result without markdown rendering

  With no PROMPT and no --file, the prompt is read from piped stdin; on a
  terminal an interactive session starts instead.

Global flags:
      --config PATH        use this config file
  -v, --verbose            debug logging
  -h, --help               show help
      --version            show version

Environment:
  NINGPROMPT_HOME          config directory (default ~/.ningprompt)
  NINGPROMPT_API_URL, NINGPROMPT_API_KEY, NINGPROMPT_MODEL,
  NINGPROMPT_TEMPLATES_DIR, NINGPROMPT_LOG_LEVEL, NINGPROMPT_SERVER_TOKEN
                           override the config file without saving
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "ningprompt %s (commit %s, built %s, %s %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

var runFlags = []string{
	"m", "mode", "template", "t", "temperature", "l", "lang", "f", "format",
	"stream", "no-stream", "file", "raw",
}

// Parse parses argv (without the program name). Usage errors are returned
// as *ValidationError.
func Parse(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}
	if len(remaining) == 0 {
		return CmdTUI, args, nil
	}

	cmd := strings.ToLower(remaining[0])
	rest := remaining[1:]

	switch cmd {
	case "tui":
		return CmdTUI, args, nil
	case "run", "r":
		err := parseRunArgs(&args, rest)
		return CmdRun, args, err
	case "templates", "template", "tpl":
		parseSubcommand(&args, rest, "list")
		return CmdTemplates, args, nil
	case "config", "cfg":
		parseSubcommand(&args, rest, "show")
		return CmdConfig, args, nil
	case "serve", "server":
		err := parseServeArgs(&args, rest)
		return CmdServe, args, err
	case "version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, NewValidationErrorWithExample("command", cmd, "unknown command", "ningprompt help")
	}
}

// parseGlobalFlags strips global flags that appear before the command.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var args Args
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "-h" || arg == "--help":
			return []string{"help"}, args, nil
		case arg == "--version":
			return []string{"version"}, args, nil
		case arg == "--config":
			if i+1 >= len(argv) {
				return nil, args, ErrMissingArgument("--config", "ningprompt --config ~/.ningprompt/config.toml")
			}
			i++
			args.ConfigPath = argv[i]
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			return argv[i:], args, nil
		}
	}
	return nil, args, nil
}

func parseRunArgs(args *Args, rest []string) error {
	p := NewArgParser(rest, "stream", "no-stream", "raw", "v", "verbose")
	if unknown := p.Unknown(append(runFlags, "v", "verbose")...); len(unknown) > 0 {
		return NewValidationErrorWithExample("flag", "--"+unknown[0], "unknown flag for run", "ningprompt run --mode enhance \"write a haiku\"")
	}
	for _, name := range []string{"mode", "m", "template", "temperature", "t", "lang", "l", "format", "f", "file"} {
		if p.MissingValue(name) {
			return ErrMissingArgument("--"+name, "ningprompt run --"+name+" VALUE")
		}
	}

	args.Verbose = args.Verbose || p.BoolFlag("v", "verbose")
	args.Mode = p.Flag("mode", "m")
	args.Template = p.Flag("template")
	args.Language = p.Flag("lang", "l")
	args.Format = p.Flag("format", "f")
	args.File = p.Flag("file")
	args.Raw = p.BoolFlag("raw")

	switch {
	case p.BoolFlag("stream") && p.BoolFlag("no-stream"):
		return NewValidationError("--stream", "", "conflicts with --no-stream")
	case p.BoolFlag("stream"):
		on := true
		args.Stream = &on
	case p.BoolFlag("no-stream"):
		off := false
		args.Stream = &off
	}

	if raw := p.Flag("temperature", "t"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t < 0 || t > 1 {
			return NewValidationErrorWithExample("temperature", raw, "must be a number between 0 and 1", "--temperature 0.7")
		}
		args.Temperature = t
		args.TemperatureSet = true
	}

	if args.Format != "" && args.Format != "markdown" && args.Format != "plain" {
		return NewValidationErrorWithExample("format", args.Format, "must be markdown or plain", "--format plain")
	}

	args.Prompt = strings.Join(p.PositionalFrom(0), " ")
	return nil
}

func parseSubcommand(args *Args, rest []string, def string) {
	p := NewArgParser(rest, "raw")
	args.Subcommand = def
	if p.PositionalCount() > 0 {
		args.Subcommand = strings.ToLower(p.Positional(0))
		args.Positional = p.PositionalFrom(1)
	}
	args.Raw = p.BoolFlag("raw")
}

func parseServeArgs(args *Args, rest []string) error {
	p := NewArgParser(rest)
	if unknown := p.Unknown("addr"); len(unknown) > 0 {
		return NewValidationErrorWithExample("flag", "--"+unknown[0], "unknown flag for serve", "ningprompt serve --addr 127.0.0.1:8787")
	}
	if p.MissingValue("addr") {
		return ErrMissingArgument("--addr", "ningprompt serve --addr 127.0.0.1:8787")
	}
	args.Addr = p.Flag("addr")
	return nil
}
