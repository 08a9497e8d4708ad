// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import "fmt"

// Response language preferences understood by LanguageInstruction. Any other
// value is treated as the name of a target language.
const (
	LanguageOrigin  = "origin"
	LanguageEnglish = "en"
	LanguageChinese = "zh"
)

// Output format preferences understood by FormatInstruction.
const (
	FormatMarkdown = "markdown"
	FormatPlain    = "plain"
)

// LanguageInstruction returns the directive substituted for
// {{language_instruction}}. Unknown values are interpolated verbatim.
func LanguageInstruction(lang string) string {
	switch lang {
	case LanguageChinese:
		return "Ensure the final output is in Chinese (Simplified)."
	case LanguageEnglish:
		return "Ensure the final output is in English."
	case LanguageOrigin:
		return "Keep the language of the output consistent with the Original Prompt."
	default:
		return fmt.Sprintf("Ensure the final output is in %s.", lang)
	}
}

// FormatInstruction returns the directive substituted for
// {{format_instruction}}. Everything except "plain" means Markdown.
func FormatInstruction(format string) string {
	if format == FormatPlain {
		return "Output as plain text only. Do NOT use markdown code blocks, bolding, or headers."
	}
	return "Output in Markdown format. Use clear structure."
}
