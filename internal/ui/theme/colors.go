// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package theme

import "github.com/charmbracelet/lipgloss"

// Palette is one complete set of colors. The workshop picks a palette from
// the saved theme setting instead of probing the terminal background, so
// toggling the theme takes effect immediately.
type Palette struct {
	// Accents
	Primary   lipgloss.Color // titles, the selected mode
	Secondary lipgloss.Color // labels, the prompt box border when focused
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Danger    lipgloss.Color

	// Surfaces
	Surface    lipgloss.Color
	SurfaceDim lipgloss.Color // header and status bar
	Overlay    lipgloss.Color // borders, separators

	// Text
	Text      lipgloss.Color
	TextDim   lipgloss.Color
	TextMuted lipgloss.Color
	Inverse   lipgloss.Color
}

// =============================================================================
// PALETTES
// =============================================================================

// Dark is the default palette (Catppuccin Mocha surfaces).
var Dark = Palette{
	Primary:   lipgloss.Color("#A78BFA"),
	Secondary: lipgloss.Color("#22D3EE"),
	Success:   lipgloss.Color("#34D399"),
	Warning:   lipgloss.Color("#FBBF24"),
	Danger:    lipgloss.Color("#FB7185"),

	Surface:    lipgloss.Color("#1E1E2E"),
	SurfaceDim: lipgloss.Color("#181825"),
	Overlay:    lipgloss.Color("#45475A"),

	Text:      lipgloss.Color("#CDD6F4"),
	TextDim:   lipgloss.Color("#A6ADC8"),
	TextMuted: lipgloss.Color("#6C7086"),
	Inverse:   lipgloss.Color("#1E1E2E"),
}

// Light mirrors Dark for light terminals.
var Light = Palette{
	Primary:   lipgloss.Color("#7C3AED"),
	Secondary: lipgloss.Color("#0891B2"),
	Success:   lipgloss.Color("#059669"),
	Warning:   lipgloss.Color("#D97706"),
	Danger:    lipgloss.Color("#E11D48"),

	Surface:    lipgloss.Color("#FFFFFF"),
	SurfaceDim: lipgloss.Color("#F5F5F5"),
	Overlay:    lipgloss.Color("#D4D4D4"),

	Text:      lipgloss.Color("#1F2937"),
	TextDim:   lipgloss.Color("#6B7280"),
	TextMuted: lipgloss.Color("#9CA3AF"),
	Inverse:   lipgloss.Color("#FFFFFF"),
}
