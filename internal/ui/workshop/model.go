// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workshop

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/luoli0706/Ning-Prompt/internal/config"
	"github.com/luoli0706/Ning-Prompt/internal/processor"
	"github.com/luoli0706/Ning-Prompt/internal/prompt"
	"github.com/luoli0706/Ning-Prompt/internal/ui/theme"
)

// MaxPromptChars bounds the prompt editor.
const MaxPromptChars = 100000

const temperatureStep = 0.1

// =============================================================================
// COLLABORATORS
// =============================================================================

// Store is the settings view the workshop reads and persists.
// *config.Store satisfies it.
type Store interface {
	processor.Settings
	Snapshot() config.Config
	Update(mutate func(*config.Config) error) error
	SetTheme(v string) error
	SetLanguage(v string) error
}

// Generator runs transformations. *processor.Processor satisfies it.
type Generator interface {
	ProcessOnce(ctx context.Context, params processor.Params) (*processor.Result, error)
	Stream(ctx context.Context, params processor.Params) iter.Seq2[string, error]
}

// TemplateLister lists the template directory. *prompt.Loader satisfies it.
type TemplateLister interface {
	ListCustomTemplates() []prompt.TemplateInfo
}

// Options wires the workshop.
type Options struct {
	Store     Store
	Generator Generator
	Templates TemplateLister
	// Changes, when set, signals template directory edits (prompt.Watcher).
	Changes <-chan struct{}
	Logger  *slog.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// modeEntry is one choice of the mode selector.
type modeEntry struct {
	Name   string
	Path   string // custom templates only
	Custom bool
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarning
	statusError
)

// Model is the Bubble Tea model of the Prompt Workshop screen.
type Model struct {
	store     Store
	gen       Generator
	templates TemplateLister
	changes   <-chan struct{}
	logger    *slog.Logger

	theme  *theme.Theme
	uiLang string
	text   uiText
	keys   KeyMap

	width  int
	height int

	input   textarea.Model
	output  viewport.Model
	spinner spinner.Model
	help    help.Model

	// Generation settings
	modes       []modeEntry
	modeIdx     int
	temperature float64
	respLang    string
	format      string
	stream      bool

	// Current run
	busy      bool
	cancelled bool
	seq       int
	handle    *streamHandle
	cancelMgr *cancelManager
	started   time.Time
	elapsed   time.Duration

	result   string // raw generated text
	rendered string // markdown rendering of result, cached per width and theme
	lastErr  error

	status     string
	statusKind statusKind
}

// New builds the workshop from the current settings.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	snap := opts.Store.Snapshot()

	m := Model{
		store:     opts.Store,
		gen:       opts.Generator,
		templates: opts.Templates,
		changes:   opts.Changes,
		logger:    logger,

		uiLang: snap.UI.Language,

		temperature: snap.Generation.Temperature,
		respLang:    snap.Generation.ResponseLanguage,
		format:      snap.Generation.OutputFormat,
		stream:      snap.Generation.Stream,

		cancelMgr: &cancelManager{},
	}
	if m.respLang == "" {
		m.respLang = prompt.LanguageOrigin
	}
	if m.format == "" {
		m.format = prompt.FormatMarkdown
	}
	m.text = textFor(m.uiLang)
	m.keys = newKeyMap(m.text)

	m.input = textarea.New()
	m.input.CharLimit = MaxPromptChars
	m.input.ShowLineNumbers = false
	m.input.Prompt = ""
	m.input.Focus()

	m.output = viewport.New(0, 0)
	m.spinner = spinner.New(spinner.WithSpinner(theme.Spinner))
	m.help = help.New()

	m.applyTheme(theme.New(snap.UI.Theme))
	m.applyText()

	m.modes = buildModes(m.listTemplates())
	m.selectMode(snap.Generation.Mode, "")
	m.setStatus(m.text.Ready, statusInfo)
	return m
}

// Run starts the workshop on the alternate screen and blocks until it exits.
func Run(opts Options) error {
	final, err := tea.NewProgram(New(opts), tea.WithAltScreen()).Run()
	if m, ok := final.(Model); ok {
		m.cancelMgr.clear()
	}
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForChange(m.changes))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case fragmentMsg:
		if msg.id != m.seq || m.handle == nil {
			return m, nil
		}
		m.result += msg.text
		m.refreshOutput()
		return m, m.handle.wait()

	case streamDoneMsg:
		if msg.id != m.seq {
			return m, nil
		}
		if m.handle != nil {
			m.handle.stop()
			m.handle = nil
		}
		m.finish(msg.err)
		return m, nil

	case resultMsg:
		if msg.id != m.seq {
			return m, nil
		}
		if msg.result != nil {
			m.result = msg.result.Text
			m.logger.Debug("workshop run complete", "request_id", msg.result.RequestID, "mode", msg.result.Mode)
		}
		m.finish(msg.err)
		return m, nil

	case templatesChangedMsg:
		m.reloadModes()
		return m, waitForChange(m.changes)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelMgr.clear()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.busy {
			m.cancelled = true
			m.cancelMgr.clear()
			m.setStatus(m.text.Cancelling, statusWarning)
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.busy {
			return m, nil
		}
		return m.submit()

	case key.Matches(msg, m.keys.NextMode):
		m.cycleMode(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevMode):
		m.cycleMode(-1)
		return m, nil

	case key.Matches(msg, m.keys.TempUp):
		m.adjustTemperature(temperatureStep)
		return m, nil

	case key.Matches(msg, m.keys.TempDown):
		m.adjustTemperature(-temperatureStep)
		return m, nil

	case key.Matches(msg, m.keys.Language):
		m.respLang = nextLanguage(m.respLang)
		return m, nil

	case key.Matches(msg, m.keys.Format):
		if m.format == prompt.FormatPlain {
			m.format = prompt.FormatMarkdown
		} else {
			m.format = prompt.FormatPlain
		}
		return m, nil

	case key.Matches(msg, m.keys.Theme):
		next := theme.Toggle(m.theme.Name)
		if err := m.store.SetTheme(next); err != nil {
			m.setStatus(fmt.Sprintf(m.text.SaveFailed, err), statusError)
		}
		m.applyTheme(theme.New(next))
		m.rendered = ""
		m.refreshOutput()
		return m, nil

	case key.Matches(msg, m.keys.UILanguage):
		next := toggleUILanguage(m.uiLang)
		if err := m.store.SetLanguage(next); err != nil {
			m.setStatus(fmt.Sprintf(m.text.SaveFailed, err), statusError)
		}
		m.uiLang = next
		m.text = textFor(next)
		m.keys = newKeyMap(m.text)
		m.applyText()
		m.refreshOutput()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.output.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.output.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if !m.busy {
			m.result, m.rendered, m.lastErr = "", "", nil
			m.setStatus(m.text.Ready, statusInfo)
			m.refreshOutput()
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.width, m.height)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// GENERATION
// =============================================================================

// params returns the generation parameters for text.
func (m Model) params(text string) processor.Params {
	p := processor.Params{
		Prompt:      text,
		Temperature: m.temperature,
		Language:    m.respLang,
		Format:      m.format,
	}
	entry := m.currentMode()
	if entry.Custom {
		p.Mode, p.CustomPath = processor.ModeCustom, entry.Path
	} else {
		p.Mode = entry.Name
	}
	return p
}

// submit starts a run with the editor contents. Submission is disabled while
// a run is active, so runs never overlap.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if err := processor.CheckReady(m.store, text); err != nil {
		m.lastErr = err
		m.setStatus(m.describeError(err), statusError)
		return m, nil
	}
	params := m.params(text)
	m.persistGeneration(params)

	m.seq++
	m.busy, m.cancelled = true, false
	m.result, m.rendered, m.lastErr = "", "", nil
	m.started = time.Now()
	m.setStatus(m.text.Generating, statusInfo)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)
	m.logger.Debug("workshop run", "mode", params.Mode, "stream", m.stream, "temperature", params.Temperature)

	var cmd tea.Cmd
	if m.stream {
		next, stop := iter.Pull2(m.gen.Stream(ctx, params))
		m.handle = &streamHandle{id: m.seq, next: next, stop: stop}
		cmd = m.handle.wait()
	} else {
		cmd = processOnce(ctx, m.gen, m.seq, params)
	}
	m.refreshOutput()
	return m, tea.Batch(m.spinner.Tick, cmd)
}

// finish ends the current run. A cancelled run keeps its partial output.
func (m *Model) finish(err error) {
	m.busy = false
	m.cancelMgr.clear()
	m.elapsed = time.Since(m.started).Round(100 * time.Millisecond)

	switch {
	case m.cancelled:
		m.setStatus(m.text.Cancelled, statusWarning)
	case err != nil:
		m.lastErr = err
		m.setStatus(m.describeError(err), statusError)
		m.logger.Warn("workshop run failed", "error", err)
	default:
		m.setStatus(fmt.Sprintf(m.text.Done, m.elapsed), statusSuccess)
	}
	m.refreshOutput()
}

// persistGeneration saves the submitted settings as the new defaults.
func (m *Model) persistGeneration(p processor.Params) {
	err := m.store.Update(func(c *config.Config) error {
		if p.Mode != processor.ModeCustom {
			c.Generation.Mode = p.Mode
		}
		c.Generation.Temperature = p.Temperature
		c.Generation.ResponseLanguage = p.Language
		c.Generation.OutputFormat = p.Format
		return nil
	})
	if err != nil {
		m.logger.Warn("could not save generation settings", "error", err)
	}
}

func (m Model) describeError(err error) string {
	var notFound *prompt.TemplateNotFoundError
	switch {
	case errors.Is(err, processor.ErrMissingAPIURL), errors.Is(err, processor.ErrMissingAPIKey):
		return m.text.NotConfigured
	case errors.Is(err, processor.ErrEmptyPrompt):
		return m.text.EmptyPrompt
	case errors.As(err, &notFound):
		return fmt.Sprintf(m.text.TemplateMissing, notFound.Path)
	}
	return err.Error()
}

// =============================================================================
// SETTINGS
// =============================================================================

func buildModes(templates []prompt.TemplateInfo) []modeEntry {
	modes := make([]modeEntry, 0, len(processor.Modes)+len(templates))
	for _, mi := range processor.Modes {
		modes = append(modes, modeEntry{Name: mi.Name})
	}
	for _, t := range templates {
		if processor.IsBuiltinMode(t.Mode) {
			continue
		}
		modes = append(modes, modeEntry{Name: t.Mode, Path: t.Path, Custom: true})
	}
	return modes
}

func (m Model) listTemplates() []prompt.TemplateInfo {
	if m.templates == nil {
		return nil
	}
	return m.templates.ListCustomTemplates()
}

func (m Model) currentMode() modeEntry {
	if m.modeIdx < 0 || m.modeIdx >= len(m.modes) {
		return modeEntry{Name: processor.DefaultMode}
	}
	return m.modes[m.modeIdx]
}

// selectMode selects the entry named name (a custom entry when path is
// set), falling back to the first entry.
func (m *Model) selectMode(name, path string) {
	m.modeIdx = 0
	for i, e := range m.modes {
		if e.Name == name && e.Path == path {
			m.modeIdx = i
			return
		}
	}
}

// reloadModes rebuilds the selector after a template edit, keeping the
// current choice when it still exists.
func (m *Model) reloadModes() {
	current := m.currentMode()
	m.modes = buildModes(m.listTemplates())
	m.selectMode(current.Name, current.Path)
	if !m.busy && m.lastErr == nil {
		m.setStatus(m.text.TemplatesReload, statusInfo)
	}
}

func (m *Model) cycleMode(delta int) {
	if len(m.modes) == 0 {
		return
	}
	m.modeIdx = (m.modeIdx + delta + len(m.modes)) % len(m.modes)
}

// adjustTemperature moves the temperature by delta within [0, 1], keeping
// one decimal.
func (m *Model) adjustTemperature(delta float64) {
	t := math.Round((m.temperature+delta)*10) / 10
	m.temperature = min(max(t, 0), 1)
}

func (m *Model) setStatus(s string, kind statusKind) {
	m.status, m.statusKind = s, kind
}

// =============================================================================
// LAYOUT
// =============================================================================

// applyTheme restyles the components.
func (m *Model) applyTheme(t *theme.Theme) {
	m.theme = t
	m.spinner.Style = t.Spinner
	m.help.Styles = t.Help
	m.input.FocusedStyle.Placeholder = t.Placeholder
	m.input.BlurredStyle.Placeholder = t.Placeholder
	m.input.FocusedStyle.CursorLine = t.Value.UnsetBold()
	m.input.Cursor.Style = t.Cursor
}

func (m *Model) applyText() {
	m.input.Placeholder = m.text.Placeholder
}

// resize lays out the panes: header and settings bar, prompt editor, result
// viewport, status line and help.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width

	helpHeight := 1
	if m.help.ShowAll {
		helpHeight = len(m.keys.FullHelp()[0])
	}
	// header, settings, status
	available := height - 3 - helpHeight
	// each pane adds a border (2) and a title line (1)
	const paneChrome = 3

	inputHeight := min(max(available/3-paneChrome, 3), 10)
	outputHeight := max(available-inputHeight-2*paneChrome, 3)
	innerWidth := max(width-4, 10)

	m.input.SetWidth(innerWidth)
	m.input.SetHeight(inputHeight)
	m.output.Width = innerWidth
	m.output.Height = outputHeight
	m.rendered = ""
	m.refreshOutput()
}
