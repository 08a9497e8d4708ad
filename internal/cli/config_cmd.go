// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"slices"

	"github.com/luoli0706/Ning-Prompt/internal/config"
)

// HandleConfig handles "ningprompt config [show|get|set|keys|path]".
func HandleConfig(app *App, args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(app, args.Raw)
	case "get":
		if len(args.Positional) < 1 {
			return ErrMissingArgument("KEY", "ningprompt config get api.model")
		}
		return configGet(app, args.Positional[0])
	case "set":
		if len(args.Positional) < 2 {
			return ErrMissingArgument("KEY VALUE", "ningprompt config set api.model gpt-4o-mini")
		}
		return configSet(app, args.Positional[0], args.Positional[1])
	case "keys":
		for _, k := range config.Keys() {
			fmt.Fprintln(app.Stdout, k)
		}
		return nil
	case "path":
		fmt.Fprintln(app.Stdout, app.Store.Path())
		return nil
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand, "unknown config subcommand", "ningprompt config show")
	}
}

func configShow(app *App, raw bool) error {
	snap := app.Store.Snapshot()
	text := snap.String()
	if !raw && isTerminal(app.Stdout) && ColorsEnabled() {
		text = highlight(text, "toml")
	}
	fmt.Fprintf(app.Stdout, "%s %s\n\n", RenderConditional(DimStyle, "#"), RenderConditional(DimStyle, app.Store.Path()))
	fmt.Fprint(app.Stdout, text)
	return nil
}

func configGet(app *App, key string) error {
	if !slices.Contains(config.Keys(), key) {
		return &NotFoundError{Resource: "config key", ID: key}
	}
	v, err := app.Store.Get(key)
	if err != nil {
		return err
	}
	out := fmt.Sprint(v)
	if config.IsSecretKey(key) {
		out = config.MaskSecret(out)
	}
	fmt.Fprintln(app.Stdout, out)
	return nil
}

func configSet(app *App, key, value string) error {
	if !slices.Contains(config.Keys(), key) {
		return &NotFoundError{Resource: "config key", ID: key}
	}
	if err := app.Store.Set(key, value); err != nil {
		return fmt.Errorf("config set %s: %w", key, err)
	}
	shown := value
	if config.IsSecretKey(key) {
		shown = config.MaskSecret(value)
	}
	fmt.Fprintf(app.Stdout, "%s %s = %s\n", RenderConditional(SuccessStyle, "[OK]"), key, shown)
	return nil
}
