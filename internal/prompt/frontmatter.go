// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Meta is the optional YAML header of a template:
//
//	---
//	name: Socratic
//	description: Rewrites the prompt as a chain of guiding questions
//	---
type Meta struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

const fence = "---"

// splitFrontMatter separates a leading YAML block from the template body.
// Text that does not open with a fence, lacks a closing fence, or does not
// parse as YAML is returned untouched; it is template text after all.
func splitFrontMatter(src string) (Meta, string) {
	var meta Meta

	text := strings.TrimPrefix(src, "\ufeff")
	first, rest, ok := strings.Cut(text, "\n")
	if !ok || strings.TrimRight(first, "\r ") != fence {
		return meta, src
	}

	var header strings.Builder
	for {
		line, next, more := strings.Cut(rest, "\n")
		if strings.TrimRight(line, "\r ") == fence {
			if err := yaml.Unmarshal([]byte(header.String()), &meta); err != nil {
				return Meta{}, src
			}
			return meta, strings.TrimLeft(next, "\r\n")
		}
		if !more {
			return Meta{}, src
		}
		header.WriteString(line)
		header.WriteByte('\n')
		rest = next
	}
}
