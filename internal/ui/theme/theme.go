// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package theme

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names accepted by New and stored in ui.theme.
const (
	NameDark  = "dark"
	NameLight = "light"
)

// Spinner is the ASCII spinner shown while a transformation runs.
var Spinner = spinner.Spinner{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    time.Second / 10,
}

// Theme holds the styled components of the workshop screen.
type Theme struct {
	Name    string
	Palette Palette

	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header   lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style

	// ==========================================================================
	// SETTINGS BAR
	// ==========================================================================

	Label        lipgloss.Style
	Value        lipgloss.Style
	Selected     lipgloss.Style
	Unselected   lipgloss.Style
	MeterFilled  lipgloss.Style
	MeterEmpty   lipgloss.Style
	SettingsLine lipgloss.Style

	// ==========================================================================
	// PANES
	// ==========================================================================

	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	PaneTitle   lipgloss.Style
	Placeholder lipgloss.Style
	Cursor      lipgloss.Style

	// ==========================================================================
	// STATUS
	// ==========================================================================

	StatusBar lipgloss.Style
	Spinner   lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style

	Help help.Styles
}

// New builds the named theme. Anything but "light" gets the dark theme.
func New(name string) *Theme {
	t := &Theme{Name: NameDark, Palette: Dark, ColorProfile: termenv.ColorProfile()}
	if name == NameLight {
		t.Name, t.Palette = NameLight, Light
	}
	t.initStyles()
	return t
}

// Toggle returns the other theme name.
func Toggle(name string) string {
	if name == NameLight {
		return NameDark
	}
	return NameLight
}

// IsDark reports whether the dark palette is in use.
func (t *Theme) IsDark() bool { return t.Name == NameDark }

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	return t.Name
}

func (t *Theme) initStyles() {
	p := t.Palette

	t.Header = lipgloss.NewStyle().
		Background(p.SurfaceDim).
		Padding(0, 1)
	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Primary).
		Background(p.SurfaceDim)
	t.Subtitle = lipgloss.NewStyle().
		Italic(true).
		Foreground(p.TextDim).
		Background(p.SurfaceDim)

	t.Label = lipgloss.NewStyle().Foreground(p.TextDim)
	t.Value = lipgloss.NewStyle().Foreground(p.Text).Bold(true)
	t.Selected = lipgloss.NewStyle().
		Foreground(p.Inverse).
		Background(p.Primary).
		Bold(true).
		Padding(0, 1)
	t.Unselected = lipgloss.NewStyle().
		Foreground(p.TextDim).
		Padding(0, 1)
	t.MeterFilled = lipgloss.NewStyle().Foreground(p.Secondary)
	t.MeterEmpty = lipgloss.NewStyle().Foreground(p.Overlay)
	t.SettingsLine = lipgloss.NewStyle().Padding(0, 1)

	t.Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Overlay).
		Padding(0, 1)
	t.PaneFocused = t.Pane.BorderForeground(p.Secondary)
	t.PaneTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Secondary)
	t.Placeholder = lipgloss.NewStyle().
		Italic(true).
		Foreground(p.TextMuted)
	t.Cursor = lipgloss.NewStyle().Foreground(p.Primary)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(p.TextDim).
		Background(p.SurfaceDim).
		Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Foreground(p.Primary)
	t.Success = lipgloss.NewStyle().Foreground(p.Success)
	t.Warning = lipgloss.NewStyle().Foreground(p.Warning)
	t.Error = lipgloss.NewStyle().Foreground(p.Danger).Bold(true)
	t.Muted = lipgloss.NewStyle().Foreground(p.TextMuted)

	t.Help = help.Styles{
		Ellipsis:       lipgloss.NewStyle().Foreground(p.TextMuted),
		ShortKey:       lipgloss.NewStyle().Foreground(p.Secondary),
		ShortDesc:      lipgloss.NewStyle().Foreground(p.TextMuted),
		ShortSeparator: lipgloss.NewStyle().Foreground(p.Overlay),
		FullKey:        lipgloss.NewStyle().Foreground(p.Secondary),
		FullDesc:       lipgloss.NewStyle().Foreground(p.TextMuted),
		FullSeparator:  lipgloss.NewStyle().Foreground(p.Overlay),
	}
}
