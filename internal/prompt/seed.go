// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed builtin/*.md
var builtinFS embed.FS

// BuiltinModes returns the names of the templates shipped with the binary.
func BuiltinModes() []string {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil
	}
	modes := make([]string, 0, len(entries))
	for _, e := range entries {
		modes = append(modes, strings.TrimSuffix(e.Name(), TemplateExt))
	}
	sort.Strings(modes)
	return modes
}

// BuiltinSource returns the shipped text of a built-in mode.
func BuiltinSource(mode string) (string, bool) {
	data, err := builtinFS.ReadFile(path.Join("builtin", mode+TemplateExt))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Seed writes every shipped template that is missing from dir and returns
// the paths it created. Existing files are never overwritten.
func Seed(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create template dir: %w", err)
	}

	var created []string
	for _, mode := range BuiltinModes() {
		target := filepath.Join(dir, mode+TemplateExt)
		src, _ := BuiltinSource(mode)

		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", target, err)
		}
		_, werr := f.WriteString(src)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			return created, fmt.Errorf("seed %s: %w", target, errors.Join(werr, cerr))
		}
		created = append(created, target)
	}
	return created, nil
}
