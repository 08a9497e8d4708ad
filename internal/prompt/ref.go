// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import "strings"

// CustomMode is the mode name that selects an operator-supplied template.
const CustomMode = "custom"

type refKind uint8

const (
	refBuiltin refKind = iota
	refCustom
)

// TemplateRef identifies the template a render should use: either a built-in
// mode resolved inside the loader directory, or a custom file path.
// The zero value is Builtin("").
type TemplateRef struct {
	kind  refKind
	value string
}

// Builtin references <dir>/<mode>.md.
func Builtin(mode string) TemplateRef {
	return TemplateRef{kind: refBuiltin, value: mode}
}

// Custom references the file at path.
func Custom(path string) TemplateRef {
	return TemplateRef{kind: refCustom, value: path}
}

// Resolve maps the (mode, customPath) pair used by callers onto a TemplateRef.
// The custom path only matters when mode is "custom"; any other mode ignores it.
func Resolve(mode, customPath string) TemplateRef {
	if mode == CustomMode && strings.TrimSpace(customPath) != "" {
		return Custom(customPath)
	}
	return Builtin(mode)
}

// IsCustom reports whether r points at an explicit file.
func (r TemplateRef) IsCustom() bool { return r.kind == refCustom }

// Mode returns the mode name the result should be tagged with.
func (r TemplateRef) Mode() string {
	if r.kind == refCustom {
		return CustomMode
	}
	return r.value
}

// CustomPath returns the path of a custom reference, or "".
func (r TemplateRef) CustomPath() string {
	if r.kind == refCustom {
		return r.value
	}
	return ""
}

func (r TemplateRef) String() string {
	if r.kind == refCustom {
		return "custom:" + r.value
	}
	return r.value
}
