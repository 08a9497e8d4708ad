// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package processor

import "github.com/luoli0706/Ning-Prompt/internal/prompt"

// Built-in mode names. The behaviour of each lives entirely in its template.
const (
	ModeEnhance    = "enhance"
	ModeGeneralize = "generalize"
	ModeWeaken     = "weaken"
	ModeRepair     = "repair"
	ModePruning    = "pruning"
	ModeDestroy    = "destroy"
	ModeCustom     = prompt.CustomMode
)

// DefaultMode is used when nothing else is configured.
const DefaultMode = ModeEnhance

// ModeInfo describes a built-in mode for menus and help text.
type ModeInfo struct {
	Name    string
	AliasOf string
	Summary string
}

// Modes lists the built-in modes in menu order. Aliases keep their own
// template file so operators can let them drift apart.
var Modes = []ModeInfo{
	{Name: ModeEnhance, Summary: "amplify descriptive specificity"},
	{Name: ModeGeneralize, Summary: "reduce specificity, broaden abstraction"},
	{Name: ModeWeaken, AliasOf: ModeGeneralize, Summary: "soften into a looser request"},
	{Name: ModeRepair, Summary: "fill semantic gaps and ambiguities"},
	{Name: ModePruning, Summary: "fragment into disjoint keywords"},
	{Name: ModeDestroy, AliasOf: ModePruning, Summary: "shatter into unconnected fragments"},
}

// IsBuiltinMode reports whether name is one of Modes.
func IsBuiltinMode(name string) bool {
	for _, m := range Modes {
		if m.Name == name {
			return true
		}
	}
	return false
}

// metricLabel folds mode into a bounded label set. Names arrive from remote
// callers, so anything that is not a built-in mode or custom counts as
// unknown.
func metricLabel(mode string) string {
	if mode == ModeCustom || IsBuiltinMode(mode) {
		return mode
	}
	return modeUnknown
}

const modeUnknown = "unknown"
