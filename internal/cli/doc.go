// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-interactive
// commands of ningprompt.
//
// # Key Types
//
//   - Command: enumeration of the available commands
//   - Args: parsed command-line arguments
//   - App: the wired dependencies every handler works against
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//		cli.DisplayError(os.Stderr, err)
//		os.Exit(cli.GetExitCode(err))
//	}
//	switch cmd {
//	case cli.CmdRun:
//		err = cli.HandleRun(ctx, app, args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - tui: the Prompt Workshop (default)
//   - run: transform one prompt, or start a line-editing session on a TTY
//   - templates: list, show and seed template files
//   - config: show, get and set configuration keys
//   - serve: run the HTTP/MCP service
//   - version, help
package cli
