// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package theme provides the dark and light styling of the Prompt Workshop.

Two fixed palettes are defined in colors.go. The active one follows the
ui.theme setting rather than terminal detection, so the workshop can switch
themes at runtime and persist the choice:

	t := theme.New(store.Theme())
	...
	next := theme.Toggle(t.Name)
	store.SetTheme(next)
	t = theme.New(next)

GlamourStyle returns the glamour standard style ("dark", "light", or "notty"
on terminals without color) used to render markdown results.
*/
package theme
