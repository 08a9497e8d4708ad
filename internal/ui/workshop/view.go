// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workshop

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/luoli0706/Ning-Prompt/internal/prompt"
	"github.com/luoli0706/Ning-Prompt/internal/util"
)

const meterWidth = 10

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderSettings(),
		m.renderInputPane(),
		m.renderOutputPane(),
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) renderHeader() string {
	t := m.theme
	line := t.Title.Render(m.text.Title) + t.Subtitle.Render("  "+m.text.Subtitle)
	return t.Header.Width(m.width).MaxWidth(m.width).Render(line)
}

// renderSettings draws the mode, intensity, language, format and theme.
func (m Model) renderSettings() string {
	t := m.theme
	entry := m.currentMode()
	name := entry.Name
	if entry.Custom {
		name += " (" + m.text.Custom + ")"
	}

	parts := []string{
		t.Label.Render(m.text.Mode+":") + " " + t.Selected.Render(name),
		t.Label.Render(m.text.Temperature+":") + " " + m.renderMeter() + " " + t.Value.Render(strconv.FormatFloat(m.temperature, 'f', 1, 64)),
		t.Label.Render(m.text.Language+":") + " " + t.Value.Render(languageName(m.respLang, m.uiLang)),
		t.Label.Render(m.text.Format+":") + " " + t.Value.Render(m.format),
		t.Label.Render(m.text.Theme+":") + " " + t.Value.Render(t.Name),
	}
	return t.SettingsLine.MaxWidth(m.width).Render(strings.Join(parts, t.Muted.Render("  |  ")))
}

// renderMeter draws the temperature as a ten-cell bar.
func (m Model) renderMeter() string {
	filled := int(m.temperature*meterWidth + 0.5)
	return m.theme.MeterFilled.Render(strings.Repeat("=", filled)) +
		m.theme.MeterEmpty.Render(strings.Repeat("-", meterWidth-filled))
}

func (m Model) renderInputPane() string {
	t := m.theme
	count := fmt.Sprintf(m.text.Chars, utf8.RuneCountInString(m.input.Value()))
	title := paneTitle(t.PaneTitle.Render(m.text.PromptPane), t.Muted.Render(count), m.input.Width())
	style := t.PaneFocused
	if m.busy {
		style = t.Pane
	}
	return style.Render(title + "\n" + m.input.View())
}

func (m Model) renderOutputPane() string {
	t := m.theme
	left := t.PaneTitle.Render(m.text.ResultPane)
	if m.busy {
		left += " " + m.spinner.View()
	}
	right := ""
	if m.result != "" {
		right = t.Muted.Render(fmt.Sprintf(m.text.Chars, utf8.RuneCountInString(m.result)))
	}
	title := paneTitle(left, right, m.output.Width)
	style := t.Pane
	if m.busy {
		style = t.PaneFocused
	}
	return style.Render(title + "\n" + m.output.View())
}

func (m Model) renderStatus() string {
	t := m.theme
	var s lipgloss.Style
	switch m.statusKind {
	case statusSuccess:
		s = t.Success
	case statusWarning:
		s = t.Warning
	case statusError:
		s = t.Error
	default:
		s = t.Label
	}
	text := util.FitWidth(util.FirstLine(m.status), max(m.width-2, 1))
	return t.StatusBar.Width(m.width).Render(s.Render(text))
}

// paneTitle puts left and right on one line of the given width.
func paneTitle(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

// =============================================================================
// RESULT RENDERING
// =============================================================================

// refreshOutput fills the result viewport. Streaming text is shown wrapped
// as it arrives; a finished markdown result is rendered with glamour.
func (m *Model) refreshOutput() {
	if m.output.Width <= 0 {
		return
	}
	var content string
	switch {
	case m.result == "" && !m.busy && m.lastErr != nil:
		content = m.theme.Error.Width(m.output.Width).Render(m.describeError(m.lastErr))
	case m.result == "" && !m.busy:
		content = m.theme.Placeholder.Width(m.output.Width).Render(m.text.ResultEmpty)
	case m.busy || m.format == prompt.FormatPlain:
		content = lipgloss.NewStyle().Width(m.output.Width).Render(m.result)
	default:
		if m.rendered == "" {
			m.rendered = m.renderMarkdown(m.result)
		}
		content = m.rendered
	}
	m.output.SetContent(content)
	if m.busy {
		m.output.GotoBottom()
	}
}

func (m Model) renderMarkdown(s string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.theme.GlamourStyle()),
		glamour.WithWordWrap(m.output.Width),
	)
	if err != nil {
		return s
	}
	out, err := r.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}
