// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/luoli0706/Ning-Prompt/internal/ui/theme"
)

// Output below this width is not wrapped any narrower.
const (
	fallbackWidth = 80
	minWidth      = 40
)

// isTerminal reports whether v is an *os.File attached to a terminal.
// Buffers used in tests are never terminals.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the column count of w, or fallbackWidth when w is
// not a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallbackWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return max(width, minWidth)
}

var (
	colorsOn   bool
	colorsOnce sync.Once
)

// ColorsEnabled follows https://no-color.org/. FORCE_COLOR wins over
// terminal detection.
func ColorsEnabled() bool {
	colorsOnce.Do(func() {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colorsOn = false
		case os.Getenv("FORCE_COLOR") != "":
			colorsOn = true
		default:
			colorsOn = isTerminal(os.Stdout)
		}
	})
	return colorsOn
}

func init() {
	if ColorsEnabled() {
		lipgloss.SetColorProfile(termenv.ColorProfile())
	} else {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// Command output styles share the dark workshop palette.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(theme.Dark.Primary)
	ValueStyle   = lipgloss.NewStyle().Foreground(theme.Dark.Text)
	LabelStyle   = lipgloss.NewStyle().Foreground(theme.Dark.TextDim)
	DimStyle     = lipgloss.NewStyle().Foreground(theme.Dark.TextMuted)
	SuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(theme.Dark.Success)
	WarningStyle = lipgloss.NewStyle().Foreground(theme.Dark.Warning)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(theme.Dark.Danger)
)

// RenderConditional styles text only when colors are enabled.
func RenderConditional(style lipgloss.Style, text string) string {
	if !ColorsEnabled() {
		return text
	}
	return style.Render(text)
}

// RenderSeparator draws a rule of the given width.
func RenderSeparator(width int) string {
	return RenderConditional(DimStyle, strings.Repeat("─", max(width, 1)))
}

// RenderLabel pads label to width.
func RenderLabel(label string, width int) string {
	return RenderConditional(LabelStyle.Width(width), label)
}

// renderMarkdown formats a result for the terminal. On failure the text is
// returned unchanged.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

// highlight colours a template or config file. lang is a chroma lexer name.
func highlight(source, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	it, err := chroma.Coalesce(lexer).Tokenise(nil, source)
	if err != nil {
		return source
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, it); err != nil {
		return source
	}
	return buf.String()
}
