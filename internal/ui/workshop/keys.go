// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workshop

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the workshop key bindings. Plain letters are left to the
// prompt editor, so every binding uses a modifier or a function key.
type KeyMap struct {
	Submit     key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	NextMode   key.Binding
	PrevMode   key.Binding
	TempUp     key.Binding
	TempDown   key.Binding
	Language   key.Binding
	Format     key.Binding
	Theme      key.Binding
	UILanguage key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Clear      key.Binding
	Help       key.Binding
}

// newKeyMap builds the bindings with help text in the UI language.
func newKeyMap(s uiText) KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s", "f5"),
			key.WithHelp("ctrl+s", s.HelpSubmit),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", s.HelpCancel),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("ctrl+c", s.HelpQuit),
		),
		NextMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", s.HelpNextMode),
		),
		PrevMode: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", s.HelpPrevMode),
		),
		TempUp: key.NewBinding(
			key.WithKeys("ctrl+up", "alt+up"),
			key.WithHelp("ctrl+up", s.HelpTempUp),
		),
		TempDown: key.NewBinding(
			key.WithKeys("ctrl+down", "alt+down"),
			key.WithHelp("ctrl+down", s.HelpTempDown),
		),
		Language: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("f2", s.HelpLanguage),
		),
		Format: key.NewBinding(
			key.WithKeys("f3"),
			key.WithHelp("f3", s.HelpFormat),
		),
		Theme: key.NewBinding(
			key.WithKeys("f4"),
			key.WithHelp("f4", s.HelpTheme),
		),
		UILanguage: key.NewBinding(
			key.WithKeys("f6"),
			key.WithHelp("f6", s.HelpUILanguage),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", s.HelpScrollUp),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", s.HelpScrollDown),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", s.HelpClear),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", s.HelpMore),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.NextMode, k.TempUp, k.Language, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Cancel, k.Clear, k.Quit},
		{k.NextMode, k.PrevMode, k.TempUp, k.TempDown},
		{k.Language, k.Format, k.Theme, k.UILanguage},
		{k.ScrollUp, k.ScrollDown, k.Help},
	}
}
