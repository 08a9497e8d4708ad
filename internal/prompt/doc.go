// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt locates and renders the instruction templates that drive
// every transformation.
//
// A template is a plain Markdown file. Built-in modes live in the template
// directory as <mode>.md; custom templates may live anywhere and are
// referenced by path. Three literal tokens are substituted on render:
//
//	{{original_prompt}}       the user's prompt, verbatim
//	{{language_instruction}}  see LanguageInstruction
//	{{format_instruction}}    see FormatInstruction
//
// Templates are read from disk on every Render so operators can edit them
// while the program is running. Watcher reports such edits to the TUI.
//
// # Usage
//
//	loader := prompt.NewLoader(dir)
//	text, err := loader.Render(prompt.Builtin("enhance"), userPrompt, "origin", "markdown")
//	if errors.Is(err, prompt.ErrTemplateNotFound) {
//	    // show err.Error(); it names the missing path
//	}
package prompt
