// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Placeholder tokens recognised in template files.
const (
	TokenOriginalPrompt      = "{{original_prompt}}"
	TokenLanguageInstruction = "{{language_instruction}}"
	TokenFormatInstruction   = "{{format_instruction}}"
)

// TemplateExt is the extension of template files.
const TemplateExt = ".md"

// =============================================================================
// ERRORS
// =============================================================================

// ErrTemplateNotFound is matched by every error reporting a missing template.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateNotFoundError names the file a render tried to read.
type TemplateNotFoundError struct {
	Path string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found: %s", e.Path)
}

// Is makes errors.Is(err, ErrTemplateNotFound) succeed.
func (e *TemplateNotFoundError) Is(target error) bool {
	return target == ErrTemplateNotFound
}

// =============================================================================
// LOADER
// =============================================================================

// TemplateInfo describes one template file found on disk.
type TemplateInfo struct {
	Name        string // file name, extension included
	Mode        string // file name without extension
	Path        string // absolute path
	Description string // from front matter, may be empty
}

// Loader renders templates from a fixed directory. It holds no cached state;
// a Loader is safe for concurrent use.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used for scan failures.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// NewLoader returns a loader rooted at dir. Relative dirs are made absolute
// against the working directory at construction time.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	l := &Loader{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the template directory.
func (l *Loader) Dir() string { return l.dir }

// Path returns the file a reference resolves to.
func (l *Loader) Path(ref TemplateRef) string {
	if ref.IsCustom() {
		return ref.CustomPath()
	}
	return filepath.Join(l.dir, ref.value+TemplateExt)
}

// Render reads the referenced template and substitutes the original prompt
// and the language and format directives. The prompt is inserted verbatim.
func (l *Loader) Render(ref TemplateRef, original, language, format string) (string, error) {
	path := l.Path(ref)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &TemplateNotFoundError{Path: path}
		}
		return "", fmt.Errorf("read template %s: %w", path, err)
	}

	_, body := splitFrontMatter(string(data))
	return fill(body, original, language, format), nil
}

// RenderMode is Render for callers that still carry the (mode, customPath)
// pair; see Resolve.
func (l *Loader) RenderMode(mode, original, language, format, customPath string) (string, error) {
	return l.Render(Resolve(mode, customPath), original, language, format)
}

// fill uses a single-pass replacer so a prompt that itself contains a token
// is never expanded a second time.
func fill(body, original, language, format string) string {
	r := strings.NewReplacer(
		TokenOriginalPrompt, original,
		TokenLanguageInstruction, LanguageInstruction(language),
		TokenFormatInstruction, FormatInstruction(format),
	)
	return r.Replace(body)
}

// ListCustomTemplates lists the *.md files directly inside the template
// directory, sorted by name. An unreadable directory is logged and yields an
// empty list.
func (l *Loader) ListCustomTemplates() []TemplateInfo {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		l.logger.Warn("template scan failed", "dir", l.dir, "error", err)
		return []TemplateInfo{}
	}

	templates := make([]TemplateInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != TemplateExt {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		info := TemplateInfo{
			Name: entry.Name(),
			Mode: strings.TrimSuffix(entry.Name(), TemplateExt),
			Path: path,
		}
		if meta, ok := l.readMeta(path); ok {
			info.Description = meta.Description
		}
		templates = append(templates, info)
	}

	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates
}

// Lookup finds a template in the directory by name (with or without the .md
// extension). Names containing path separators are rejected.
func (l *Loader) Lookup(name string) (TemplateInfo, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), TemplateExt)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return TemplateInfo{}, &TemplateNotFoundError{Path: name}
	}
	path := filepath.Join(l.dir, name+TemplateExt)
	if _, err := os.Stat(path); err != nil {
		return TemplateInfo{}, &TemplateNotFoundError{Path: path}
	}
	info := TemplateInfo{Name: name + TemplateExt, Mode: name, Path: path}
	if meta, ok := l.readMeta(path); ok {
		info.Description = meta.Description
	}
	return info, nil
}

// Source returns the raw text of a template, front matter included.
func (l *Loader) Source(ref TemplateRef) (string, error) {
	path := l.Path(ref)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &TemplateNotFoundError{Path: path}
		}
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return string(data), nil
}

func (l *Loader) readMeta(path string) (Meta, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Debug("template unreadable", "path", path, "error", err)
		return Meta{}, false
	}
	meta, _ := splitFrontMatter(string(data))
	return meta, true
}
