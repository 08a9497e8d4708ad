// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"slices"

	"github.com/luoli0706/Ning-Prompt/internal/processor"
	"github.com/luoli0706/Ning-Prompt/internal/prompt"
	"github.com/luoli0706/Ning-Prompt/internal/util"
)

// HandleTemplates handles "ningprompt templates [list|show|seed|path]".
func HandleTemplates(app *App, args Args) error {
	switch args.Subcommand {
	case "", "list", "ls":
		return templatesList(app)
	case "show", "cat":
		if len(args.Positional) == 0 {
			return ErrMissingArgument("NAME", "ningprompt templates show enhance")
		}
		return templatesShow(app, args.Positional[0], args.Raw)
	case "seed":
		return templatesSeed(app)
	case "path", "dir":
		fmt.Fprintln(app.Stdout, app.Templates.Dir())
		return nil
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand, "unknown templates subcommand", "ningprompt templates list")
	}
}

func templatesList(app *App) error {
	templates := app.Templates.ListCustomTemplates()
	if len(templates) == 0 {
		fmt.Fprintf(app.Stdout, "No templates in %s\n", app.Templates.Dir())
		fmt.Fprintln(app.Stdout, RenderConditional(DimStyle, "Restore the built-ins with: ningprompt templates seed"))
		return nil
	}

	width := terminalWidth(app.Stdout)
	nameWidth := 14
	for _, t := range templates {
		nameWidth = max(nameWidth, len(t.Name)+2)
	}
	descWidth := max(width-nameWidth-12, 20)

	fmt.Fprintln(app.Stdout, RenderConditional(TitleStyle, "Templates")+"  "+RenderConditional(DimStyle, app.Templates.Dir()))
	fmt.Fprintln(app.Stdout, RenderSeparator(min(width-2, 72)))
	for _, t := range templates {
		kind := "custom"
		if processor.IsBuiltinMode(t.Mode) {
			kind = "mode"
		}
		desc := t.Description
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(app.Stdout, "%s %s %s\n",
			RenderConditional(ValueStyle, util.PadWidth(t.Name, nameWidth)),
			RenderConditional(DimStyle, util.PadWidth(kind, 7)),
			util.FitWidth(desc, descWidth))
	}

	var missing []string
	for _, m := range processor.Modes {
		if !slices.ContainsFunc(templates, func(t prompt.TemplateInfo) bool { return t.Mode == m.Name }) {
			missing = append(missing, m.Name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(app.Stdout, "\n%s built-in modes without a template: %v\n", RenderConditional(WarningStyle, "[WARN]"), missing)
	}
	return nil
}

func templatesShow(app *App, name string, raw bool) error {
	path, err := resolveTemplate(app.Templates, name)
	if err != nil {
		return err
	}
	src, err := app.Templates.Source(prompt.Custom(path))
	if err != nil {
		return err
	}
	if !raw && isTerminal(app.Stdout) && ColorsEnabled() {
		src = highlight(src, "markdown")
	}
	fmt.Fprint(app.Stdout, src)
	if len(src) > 0 && src[len(src)-1] != '\n' {
		fmt.Fprintln(app.Stdout)
	}
	return nil
}

func templatesSeed(app *App) error {
	written, err := prompt.Seed(app.Templates.Dir())
	if err != nil {
		return fmt.Errorf("seeding templates: %w", err)
	}
	if len(written) == 0 {
		fmt.Fprintln(app.Stdout, "All built-in templates are present.")
		return nil
	}
	for _, path := range written {
		fmt.Fprintf(app.Stdout, "%s %s\n", RenderConditional(SuccessStyle, "[OK]"), path)
	}
	return nil
}
