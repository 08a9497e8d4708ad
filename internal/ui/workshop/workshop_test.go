// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workshop

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luoli0706/Ning-Prompt/internal/config"
	"github.com/luoli0706/Ning-Prompt/internal/processor"
	"github.com/luoli0706/Ning-Prompt/internal/prompt"
	"github.com/luoli0706/Ning-Prompt/internal/ui/theme"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeStore struct {
	cfg     config.Config
	updates int
	themes  []string
	langs   []string
	saveErr error
}

func newFakeStore() *fakeStore {
	cfg := *config.Default()
	cfg.API.URL = "https://api.example.com/v1/chat/completions"
	cfg.API.Key = "sk-test"
	cfg.Generation.Stream = true
	return &fakeStore{cfg: cfg}
}

func (s *fakeStore) APIURL() string          { return s.cfg.API.URL }
func (s *fakeStore) APIKey() string          { return s.cfg.API.Key }
func (s *fakeStore) Model() string           { return s.cfg.API.Model }
func (s *fakeStore) Snapshot() config.Config { return s.cfg }

func (s *fakeStore) Update(mutate func(*config.Config) error) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.updates++
	return mutate(&s.cfg)
}

func (s *fakeStore) SetTheme(v string) error {
	s.themes = append(s.themes, v)
	return s.saveErr
}

func (s *fakeStore) SetLanguage(v string) error {
	s.langs = append(s.langs, v)
	return s.saveErr
}

type fakeGenerator struct {
	fragments []string
	text      string
	err       error
	block     bool

	calls  int
	params processor.Params
}

func (g *fakeGenerator) ProcessOnce(ctx context.Context, p processor.Params) (*processor.Result, error) {
	g.calls++
	g.params = p
	if g.err != nil {
		return nil, g.err
	}
	return &processor.Result{RequestID: "req-1", Mode: p.Mode, Text: g.text}, nil
}

func (g *fakeGenerator) Stream(ctx context.Context, p processor.Params) iter.Seq2[string, error] {
	g.calls++
	g.params = p
	return func(yield func(string, error) bool) {
		if g.block {
			<-ctx.Done()
			yield("", ctx.Err())
			return
		}
		for _, f := range g.fragments {
			if !yield(f, nil) {
				return
			}
		}
		if g.err != nil {
			yield("", g.err)
		}
	}
}

type fakeLister struct{ templates []prompt.TemplateInfo }

func (l *fakeLister) ListCustomTemplates() []prompt.TemplateInfo { return l.templates }

// =============================================================================
// HELPERS
// =============================================================================

func newTestModel(t *testing.T, store *fakeStore, gen *fakeGenerator, lister *fakeLister) Model {
	t.Helper()
	if lister == nil {
		lister = &fakeLister{}
	}
	m := New(Options{Store: store, Generator: gen, Templates: lister})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

// drive runs cmd and every generation command that follows from it,
// feeding the results back into the model. Spinner ticks are dropped.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "generation did not finish")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case fragmentMsg, streamDoneMsg, resultMsg:
			next, cmd := m.Update(msg)
			m = next.(Model)
			queue = append(queue, cmd)
		}
	}
	return m
}

var (
	keySubmit   = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyCancel   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab      = tea.KeyMsg{Type: tea.KeyTab}
	keyShiftTab = tea.KeyMsg{Type: tea.KeyShiftTab}
	keyTempUp   = tea.KeyMsg{Type: tea.KeyCtrlUp}
	keyTempDown = tea.KeyMsg{Type: tea.KeyCtrlDown}
	keyLanguage = tea.KeyMsg{Type: tea.KeyF2}
	keyFormat   = tea.KeyMsg{Type: tea.KeyF3}
	keyTheme    = tea.KeyMsg{Type: tea.KeyF4}
	keyUILang   = tea.KeyMsg{Type: tea.KeyF6}
	keyClear    = tea.KeyMsg{Type: tea.KeyCtrlL}
	keyQuit     = tea.KeyMsg{Type: tea.KeyCtrlC}
)

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestNewUsesConfig(t *testing.T) {
	store := newFakeStore()
	store.cfg.Generation.Mode = processor.ModeRepair
	store.cfg.Generation.Temperature = 0.3
	store.cfg.Generation.ResponseLanguage = prompt.LanguageChinese
	store.cfg.UI.Theme = theme.NameLight
	store.cfg.UI.Language = uiChinese

	m := newTestModel(t, store, &fakeGenerator{}, nil)

	assert.Equal(t, processor.ModeRepair, m.currentMode().Name)
	assert.Equal(t, 0.3, m.temperature)
	assert.Equal(t, prompt.LanguageChinese, m.respLang)
	assert.Equal(t, theme.NameLight, m.theme.Name)
	assert.Equal(t, catalog[uiChinese].Title, m.text.Title)
	assert.True(t, m.stream)
}

func TestModeSelector(t *testing.T) {
	lister := &fakeLister{templates: []prompt.TemplateInfo{
		{Name: "enhance.md", Mode: "enhance", Path: "/tpl/enhance.md"},
		{Name: "persona.md", Mode: "persona", Path: "/tpl/persona.md"},
	}}
	m := newTestModel(t, newFakeStore(), &fakeGenerator{}, lister)

	require.Len(t, m.modes, len(processor.Modes)+1, "built-in template files must not be listed twice")
	assert.Equal(t, processor.ModeEnhance, m.currentMode().Name)

	m, _ = press(t, m, keyShiftTab)
	assert.Equal(t, "persona", m.currentMode().Name, "shift+tab wraps to the last entry")
	assert.True(t, m.currentMode().Custom)

	p := m.params("text")
	assert.Equal(t, processor.ModeCustom, p.Mode)
	assert.Equal(t, "/tpl/persona.md", p.CustomPath)

	m, _ = press(t, m, keyTab)
	assert.Equal(t, processor.ModeEnhance, m.currentMode().Name, "tab wraps to the first entry")
	m, _ = press(t, m, keyTab)
	assert.Equal(t, processor.ModeGeneralize, m.params("x").Mode)
}

func TestTemperatureStepsAndClamps(t *testing.T) {
	m := newTestModel(t, newFakeStore(), &fakeGenerator{}, nil)
	require.Equal(t, 0.5, m.temperature)

	m, _ = press(t, m, keyTempUp)
	assert.Equal(t, 0.6, m.temperature)

	for range 10 {
		m, _ = press(t, m, keyTempUp)
	}
	assert.Equal(t, 1.0, m.temperature)

	for range 15 {
		m, _ = press(t, m, keyTempDown)
	}
	assert.Equal(t, 0.0, m.temperature)
}

func TestLanguageAndFormatCycle(t *testing.T) {
	m := newTestModel(t, newFakeStore(), &fakeGenerator{}, nil)
	require.Equal(t, prompt.LanguageOrigin, m.respLang)

	m, _ = press(t, m, keyLanguage)
	assert.Equal(t, prompt.LanguageEnglish, m.respLang)
	m, _ = press(t, m, keyLanguage)
	assert.Equal(t, prompt.LanguageChinese, m.respLang)

	m, _ = press(t, m, keyFormat)
	assert.Equal(t, prompt.FormatPlain, m.format)
	m, _ = press(t, m, keyFormat)
	assert.Equal(t, prompt.FormatMarkdown, m.format)
}

func TestThemeTogglePersists(t *testing.T) {
	store := newFakeStore()
	m := newTestModel(t, store, &fakeGenerator{}, nil)

	m, _ = press(t, m, keyTheme)
	assert.Equal(t, theme.NameLight, m.theme.Name)
	m, _ = press(t, m, keyTheme)
	assert.Equal(t, theme.NameDark, m.theme.Name)
	assert.Equal(t, []string{theme.NameLight, theme.NameDark}, store.themes)
}

func TestThemeToggleSaveFailure(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("disk full")
	m := newTestModel(t, store, &fakeGenerator{}, nil)

	m, _ = press(t, m, keyTheme)
	assert.Equal(t, theme.NameLight, m.theme.Name, "the toggle still applies for this session")
	assert.Equal(t, statusError, m.statusKind)
	assert.Contains(t, m.status, "disk full")
}

func TestUILanguageToggle(t *testing.T) {
	store := newFakeStore()
	m := newTestModel(t, store, &fakeGenerator{}, nil)

	m, _ = press(t, m, keyUILang)
	assert.Equal(t, uiChinese, m.uiLang)
	assert.Equal(t, catalog[uiChinese].Placeholder, m.input.Placeholder)
	assert.Equal(t, []string{uiChinese}, store.langs)
	assert.Contains(t, m.View(), catalog[uiChinese].Title)
}

func TestTemplatesChangedKeepsSelection(t *testing.T) {
	lister := &fakeLister{templates: []prompt.TemplateInfo{{Name: "persona.md", Mode: "persona", Path: "/tpl/persona.md"}}}
	m := newTestModel(t, newFakeStore(), &fakeGenerator{}, lister)
	m, _ = press(t, m, keyShiftTab)
	require.Equal(t, "persona", m.currentMode().Name)

	lister.templates = []prompt.TemplateInfo{
		{Name: "alpha.md", Mode: "alpha", Path: "/tpl/alpha.md"},
		{Name: "persona.md", Mode: "persona", Path: "/tpl/persona.md"},
	}
	next, cmd := m.Update(templatesChangedMsg{})
	m = next.(Model)

	assert.Nil(t, cmd, "no watcher channel, no follow-up wait")
	assert.Len(t, m.modes, len(processor.Modes)+2)
	assert.Equal(t, "persona", m.currentMode().Name)

	lister.templates = nil
	next, _ = m.Update(templatesChangedMsg{})
	m = next.(Model)
	assert.Equal(t, processor.ModeEnhance, m.currentMode().Name, "a deleted template falls back to the first mode")
}

func TestWaitForChange(t *testing.T) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	assert.Equal(t, templatesChangedMsg{}, waitForChange(ch)())

	close(ch)
	assert.Nil(t, waitForChange(ch)())
	assert.Nil(t, waitForChange(nil))
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestSubmitStreaming(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{fragments: []string{"Hel", "lo ", "world"}}
	m := newTestModel(t, store, gen, nil)
	m.input.SetValue("write a poem")
	m, _ = press(t, m, keyTempUp)
	m, _ = press(t, m, keyFormat)

	m, cmd := press(t, m, keySubmit)
	require.True(t, m.busy)
	require.NotNil(t, cmd)

	// A second submit while busy is ignored.
	m, again := press(t, m, keySubmit)
	assert.Nil(t, again)

	m = drive(t, m, cmd)
	assert.False(t, m.busy)
	assert.Equal(t, "Hello world", m.result)
	assert.Equal(t, statusSuccess, m.statusKind)
	assert.Equal(t, 1, gen.calls)

	assert.Equal(t, processor.Params{
		Mode:        processor.ModeEnhance,
		Prompt:      "write a poem",
		Temperature: 0.6,
		Language:    prompt.LanguageOrigin,
		Format:      prompt.FormatPlain,
	}, gen.params)

	assert.Equal(t, 1, store.updates)
	assert.Equal(t, 0.6, store.cfg.Generation.Temperature)
	assert.Equal(t, prompt.FormatPlain, store.cfg.Generation.OutputFormat)
	assert.Contains(t, m.View(), "Hello world")
}

func TestSubmitOneShot(t *testing.T) {
	store := newFakeStore()
	store.cfg.Generation.Stream = false
	gen := &fakeGenerator{text: "# Title\n\nBody text"}
	m := newTestModel(t, store, gen, nil)
	m.input.SetValue("x")

	m, cmd := press(t, m, keySubmit)
	m = drive(t, m, cmd)

	assert.False(t, m.busy)
	assert.Equal(t, "# Title\n\nBody text", m.result)
	assert.NotEmpty(t, m.rendered, "markdown results are rendered")
	assert.Contains(t, stripANSI(m.output.View()), "Body")
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fakeStore, *fakeGenerator)
		input   string
		want    string
		calls   int
		partial string
	}{
		{
			name:  "not configured",
			setup: func(s *fakeStore, _ *fakeGenerator) { s.cfg.API.Key = "" },
			input: "x",
			want:  catalog[uiEnglish].NotConfigured,
		},
		{
			name:  "empty prompt",
			setup: func(*fakeStore, *fakeGenerator) {},
			input: "   ",
			want:  catalog[uiEnglish].EmptyPrompt,
		},
		{
			name: "template missing",
			setup: func(_ *fakeStore, g *fakeGenerator) {
				g.err = &prompt.TemplateNotFoundError{Path: "/tpl/enhance.md"}
			},
			input: "x",
			want:  "/tpl/enhance.md",
			calls: 1,
		},
		{
			name: "failure after fragments",
			setup: func(_ *fakeStore, g *fakeGenerator) {
				g.fragments = []string{"partial"}
				g.err = &processor.GenerationError{Err: errors.New("connection reset")}
			},
			input:   "x",
			want:    "connection reset",
			calls:   1,
			partial: "partial",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, gen := newFakeStore(), &fakeGenerator{}
			tt.setup(store, gen)
			m := newTestModel(t, store, gen, nil)
			m.input.SetValue(tt.input)

			m, cmd := press(t, m, keySubmit)
			m = drive(t, m, cmd)

			assert.False(t, m.busy)
			assert.Equal(t, statusError, m.statusKind)
			assert.Contains(t, m.status, tt.want)
			assert.Equal(t, tt.calls, gen.calls)
			assert.Equal(t, tt.partial, m.result)
		})
	}
}

func TestCancelKeepsPartialOutput(t *testing.T) {
	gen := &fakeGenerator{block: true}
	m := newTestModel(t, newFakeStore(), gen, nil)
	m.input.SetValue("x")

	m, cmd := press(t, m, keySubmit)
	m.result = "so far"
	m, _ = press(t, m, keyCancel)
	assert.Equal(t, catalog[uiEnglish].Cancelling, m.status)

	m = drive(t, m, cmd)
	assert.False(t, m.busy)
	assert.Equal(t, catalog[uiEnglish].Cancelled, m.status)
	assert.Equal(t, "so far", m.result)
	assert.Nil(t, m.lastErr)
}

func TestStaleMessagesIgnored(t *testing.T) {
	m := newTestModel(t, newFakeStore(), &fakeGenerator{}, nil)

	next, cmd := m.Update(fragmentMsg{id: 42, text: "late"})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Empty(t, m.result)

	next, _ = m.Update(resultMsg{id: 42, result: &processor.Result{Text: "late"}})
	assert.Empty(t, next.(Model).result)
}

func TestClearResult(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"done"}}
	m := newTestModel(t, newFakeStore(), gen, nil)
	m.input.SetValue("x")
	m, cmd := press(t, m, keySubmit)
	m = drive(t, m, cmd)
	require.Equal(t, "done", m.result)

	m, _ = press(t, m, keyClear)
	assert.Empty(t, m.result)
	assert.Equal(t, "x", m.input.Value(), "clear keeps the prompt")
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, newFakeStore(), &fakeGenerator{}, nil)
	_, cmd := press(t, m, keyQuit)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func TestViewBeforeResize(t *testing.T) {
	m := New(Options{Store: newFakeStore(), Generator: &fakeGenerator{}})
	assert.Empty(t, m.View())
}

func TestView(t *testing.T) {
	m := newTestModel(t, newFakeStore(), &fakeGenerator{}, nil)
	m.input.SetValue("hello")
	view := m.View()

	for _, want := range []string{"Prompt Workshop", "enhance", "0.5", "5 chars", catalog[uiEnglish].ResultEmpty[:20]} {
		assert.Contains(t, view, want)
	}
	for _, line := range strings.Split(view, "\n") {
		assert.LessOrEqual(t, len([]rune(stripANSI(line))), 100, "line wider than the terminal: %q", line)
	}
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, catalog[uiEnglish].SameAsInput, languageName(prompt.LanguageOrigin, uiEnglish))
	assert.Equal(t, catalog[uiChinese].SameAsInput, languageName(prompt.LanguageOrigin, uiChinese))
	assert.Equal(t, "Japanese", languageName("ja", uiEnglish))
	assert.NotEqual(t, "ja", languageName("ja", uiChinese))
	assert.Equal(t, "Klingon dialect", languageName("Klingon dialect", uiEnglish))
}

func TestNextLanguage(t *testing.T) {
	assert.Equal(t, prompt.LanguageEnglish, nextLanguage(prompt.LanguageOrigin))
	assert.Equal(t, prompt.LanguageOrigin, nextLanguage(responseLanguages[len(responseLanguages)-1]))
	assert.Equal(t, prompt.LanguageOrigin, nextLanguage("Esperanto"))
}

// stripANSI removes SGR escape sequences.
func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 0x40 || s[j] > 0x7e) {
				j++
			}
			i = j
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
