// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luoli0706/Ning-Prompt/internal/llm"
	"github.com/luoli0706/Ning-Prompt/internal/metrics"
	"github.com/luoli0706/Ning-Prompt/internal/prompt"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSettings struct {
	url, key, model string
}

func (s *fakeSettings) APIURL() string { return s.url }
func (s *fakeSettings) APIKey() string { return s.key }
func (s *fakeSettings) Model() string  { return s.model }

type fakeTransport struct {
	resp      *llm.ChatResponse
	err       error
	fragments []string
	streamErr error
	requests  []llm.Request
}

func (f *fakeTransport) SendOnce(_ context.Context, req llm.Request) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func (f *fakeTransport) Stream(_ context.Context, req llm.Request) iter.Seq2[string, error] {
	f.requests = append(f.requests, req)
	return func(yield func(string, error) bool) {
		for _, frag := range f.fragments {
			if !yield(frag, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield("", f.streamErr)
		}
	}
}

func decodeResponse(t *testing.T, body string) *llm.ChatResponse {
	t.Helper()
	var resp llm.ChatResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	resp.Raw = []byte(body)
	return &resp
}

func newTestProcessor(t *testing.T, tr Transport, settings Settings) (*Processor, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "enhance.md"),
		[]byte("ENHANCE {{original_prompt}} | {{language_instruction}} | {{format_instruction}}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repair.md"),
		[]byte("REPAIR {{original_prompt}}"), 0o644))
	return New(prompt.NewLoader(dir), tr, settings), dir
}

func defaultSettings() *fakeSettings {
	return &fakeSettings{url: "https://api.example.com/v1/chat/completions", key: "sk-1", model: "gpt-test"}
}

// =============================================================================
// ONE-SHOT
// =============================================================================

func TestProcessOnceReturnsText(t *testing.T) {
	tr := &fakeTransport{resp: decodeResponse(t, `{"choices":[{"message":{"content":"X"}}]}`)}
	p, _ := newTestProcessor(t, tr, defaultSettings())

	res, err := p.ProcessOnce(context.Background(), Params{
		Mode: ModeEnhance, Prompt: "draw a cat", Temperature: 0.7, Language: "en", Format: "plain",
	})
	require.NoError(t, err)
	assert.Equal(t, "X", res.Text)
	assert.Equal(t, ModeEnhance, res.Mode)
	assert.Equal(t, "gpt-test", res.Model)
	assert.NotEmpty(t, res.RequestID)

	require.Len(t, tr.requests, 1)
	req := tr.requests[0]
	assert.Equal(t, "https://api.example.com/v1/chat/completions", req.URL)
	assert.Equal(t, "sk-1", req.APIKey)
	assert.Equal(t, 0.7, req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "ENHANCE draw a cat | "+prompt.LanguageInstruction("en")+" | "+prompt.FormatInstruction("plain"),
		req.Messages[0].Content)
	assert.Equal(t, llm.UserMessage("Begin task."), req.Messages[1])
}

func TestProcessOnceRereadsSettings(t *testing.T) {
	settings := defaultSettings()
	tr := &fakeTransport{resp: decodeResponse(t, `{"choices":[{"message":{"content":"X"}}]}`)}
	p, _ := newTestProcessor(t, tr, settings)

	_, err := p.ProcessOnce(context.Background(), Params{Mode: ModeEnhance, Prompt: "a"})
	require.NoError(t, err)

	settings.url = "https://other.example.com/chat"
	settings.key = "sk-2"
	settings.model = "gpt-next"

	res, err := p.ProcessOnce(context.Background(), Params{Mode: ModeEnhance, Prompt: "a"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-next", res.Model)

	require.Len(t, tr.requests, 2)
	assert.Equal(t, "https://other.example.com/chat", tr.requests[1].URL)
	assert.Equal(t, "sk-2", tr.requests[1].APIKey)
}

func TestProcessOnceTransportFailure(t *testing.T) {
	cause := &llm.RequestError{Kind: llm.KindHTTPStatus, Status: 500, URL: "https://api.example.com", Body: "overloaded"}
	tr := &fakeTransport{err: cause}
	p, _ := newTestProcessor(t, tr, defaultSettings())

	_, err := p.ProcessOnce(context.Background(), Params{Mode: ModeRepair, Prompt: "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, llm.ErrHTTPStatus)
	assert.Contains(t, err.Error(), "overloaded")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, ModeRepair, genErr.Mode)
}

func TestProcessOnceProviderErrorBody(t *testing.T) {
	tr := &fakeTransport{resp: decodeResponse(t, `{"error":"invalid model"}`)}
	p, _ := newTestProcessor(t, tr, defaultSettings())

	_, err := p.ProcessOnce(context.Background(), Params{Mode: ModeEnhance, Prompt: "a"})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "invalid model")
}

func TestProcessOnceMissingContent(t *testing.T) {
	bodies := []string{
		`{"choices":[]}`,
		`{"choices":[{"message":{}}]}`,
		`{"choices":[{"message":{"content":null}}]}`,
		`{"id":"x"}`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			tr := &fakeTransport{resp: decodeResponse(t, body)}
			p, _ := newTestProcessor(t, tr, defaultSettings())

			_, err := p.ProcessOnce(context.Background(), Params{Mode: ModeEnhance, Prompt: "a"})
			assert.ErrorIs(t, err, ErrResponseParse)

			var parseErr *ResponseParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, body, parseErr.Raw)
		})
	}
}

func TestProcessOnceShapeMismatchIsParseError(t *testing.T) {
	tr := &fakeTransport{err: &llm.RequestError{Kind: llm.KindParse, Body: `{"choices":"x"}`, Err: errors.New("cannot unmarshal")}}
	p, _ := newTestProcessor(t, tr, defaultSettings())

	_, err := p.ProcessOnce(context.Background(), Params{Mode: ModeEnhance, Prompt: "a"})
	var parseErr *ResponseParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, `{"choices":"x"}`, parseErr.Raw)
	assert.False(t, errors.Is(err, ErrGenerationFailed))
}

func TestProcessOnceUnknownMode(t *testing.T) {
	tr := &fakeTransport{}
	p, dir := newTestProcessor(t, tr, defaultSettings())

	_, err := p.ProcessOnce(context.Background(), Params{Mode: "sarcastic", Prompt: "a"})
	assert.ErrorIs(t, err, prompt.ErrTemplateNotFound)
	assert.Contains(t, err.Error(), filepath.Join(dir, "sarcastic.md"))
	assert.Empty(t, tr.requests, "nothing is sent when rendering fails")
}

func TestProcessOnceCustomTemplate(t *testing.T) {
	tr := &fakeTransport{resp: decodeResponse(t, `{"choices":[{"message":{"content":"ok"}}]}`)}
	p, _ := newTestProcessor(t, tr, defaultSettings())

	custom := filepath.Join(t.TempDir(), "persona.md")
	require.NoError(t, os.WriteFile(custom, []byte("PERSONA {{original_prompt}}"), 0o644))

	res, err := p.ProcessOnce(context.Background(), Params{Mode: ModeCustom, Prompt: "a", CustomPath: custom})
	require.NoError(t, err)
	assert.Equal(t, ModeCustom, res.Mode)
	assert.Equal(t, "PERSONA a", tr.requests[0].Messages[0].Content)

	// A custom path is ignored for built-in modes.
	_, err = p.ProcessOnce(context.Background(), Params{Mode: ModeRepair, Prompt: "a", CustomPath: custom})
	require.NoError(t, err)
	assert.Equal(t, "REPAIR a", tr.requests[1].Messages[0].Content)
}

// =============================================================================
// STREAMING
// =============================================================================

func TestProcessStreamingRelaysFragments(t *testing.T) {
	tr := &fakeTransport{fragments: []string{"A", "B", "C"}}
	p, _ := newTestProcessor(t, tr, defaultSettings())

	var got []string
	for frag := range p.ProcessStreaming(context.Background(), Params{Mode: ModeEnhance, Prompt: "a"}) {
		got = append(got, frag)
	}
	assert.Equal(t, []string{"A", "B", "C"}, got)
	require.Len(t, tr.requests, 1)
	assert.Equal(t, TriggerMessage, tr.requests[0].Messages[1].Content)
}

func TestProcessStreamingFailureMarker(t *testing.T) {
	tr := &fakeTransport{
		fragments: []string{"A"},
		streamErr: &llm.RequestError{Kind: llm.KindTransport, URL: "https://api.example.com", Err: io.ErrUnexpectedEOF},
	}
	p, _ := newTestProcessor(t, tr, defaultSettings())

	var got []string
	for frag := range p.ProcessStreaming(context.Background(), Params{Mode: ModeEnhance, Prompt: "a"}) {
		got = append(got, frag)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0])
	assert.True(t, llm.IsErrorMarker(got[1]))
}

func TestProcessStreamingMissingTemplate(t *testing.T) {
	tr := &fakeTransport{fragments: []string{"never"}}
	p, _ := newTestProcessor(t, tr, defaultSettings())

	var got []string
	for frag := range p.ProcessStreaming(context.Background(), Params{Mode: "nope", Prompt: "a"}) {
		got = append(got, frag)
	}
	require.Len(t, got, 1)
	assert.True(t, llm.IsErrorMarker(got[0]))
	assert.Contains(t, got[0], "nope.md")
	assert.Empty(t, tr.requests)
}

func TestStreamSeparatesError(t *testing.T) {
	tr := &fakeTransport{fragments: []string{"A"}, streamErr: &llm.RequestError{Kind: llm.KindHTTPStatus, Status: 503}}
	p, _ := newTestProcessor(t, tr, defaultSettings())

	var frags []string
	var last error
	for frag, err := range p.Stream(context.Background(), Params{Mode: ModeEnhance, Prompt: "a"}) {
		if err != nil {
			last = err
			continue
		}
		frags = append(frags, frag)
	}
	assert.Equal(t, []string{"A"}, frags)
	assert.ErrorIs(t, last, ErrGenerationFailed)
	assert.ErrorIs(t, last, llm.ErrHTTPStatus)
}

func TestStreamIsSingleUse(t *testing.T) {
	tr := &fakeTransport{fragments: []string{"A"}}
	p, _ := newTestProcessor(t, tr, defaultSettings())

	seq := p.ProcessStreaming(context.Background(), Params{Mode: ModeEnhance, Prompt: "a"})
	n := 0
	for range seq {
		n++
	}
	for range seq {
		n++
	}
	assert.Equal(t, 1, n)
	assert.Len(t, tr.requests, 1)
}

// TestProcessStreamingOverSSE drives the real client against an SSE server.
func TestProcessStreamingOverSSE(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n")
		io.WriteString(w, "data: not-json\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"B\"}}]}\n")
		io.WriteString(w, "data: [DONE]\n")
	}))
	defer server.Close()

	client := llm.New()
	defer client.Close()

	settings := defaultSettings()
	settings.url = server.URL
	p, _ := newTestProcessor(t, client, settings)

	var got []string
	for frag := range p.ProcessStreaming(context.Background(), Params{Mode: ModeEnhance, Prompt: "a"}) {
		got = append(got, frag)
	}
	assert.Equal(t, []string{"A", "B"}, got)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCheckReady(t *testing.T) {
	assert.NoError(t, CheckReady(defaultSettings(), "a prompt"))

	err := CheckReady(&fakeSettings{}, "  ")
	assert.ErrorIs(t, err, ErrMissingAPIURL)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	err = CheckReady(&fakeSettings{url: "u"}, "p")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.NotErrorIs(t, err, ErrMissingAPIURL)
}

func TestModes(t *testing.T) {
	assert.True(t, IsBuiltinMode(ModeWeaken))
	assert.False(t, IsBuiltinMode(ModeCustom))
	for _, m := range Modes {
		_, ok := prompt.BuiltinSource(m.Name)
		assert.True(t, ok, "mode %s ships a template", m.Name)
	}
}

func TestMetricLabel(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{ModeEnhance, ModeEnhance},
		{ModeDestroy, ModeDestroy},
		{ModeCustom, ModeCustom},
		{"junk", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, metricLabel(tt.mode), tt.mode)
	}
}

func TestUnknownModesShareOneSeries(t *testing.T) {
	p, _ := newTestProcessor(t, &fakeTransport{}, defaultSettings())
	ctx := context.Background()

	send := func(from, to int) {
		for i := from; i < to; i++ {
			mode := fmt.Sprintf("junk%d", i)
			_, err := p.ProcessOnce(ctx, Params{Mode: mode, Prompt: "p"})
			require.ErrorIs(t, err, prompt.ErrTemplateNotFound)
			for _, err := range p.Stream(ctx, Params{Mode: mode, Prompt: "p"}) {
				require.ErrorIs(t, err, prompt.ErrTemplateNotFound)
			}
		}
	}

	send(0, 1)
	before := testutil.CollectAndCount(metrics.Generations)
	send(1, 200)
	assert.Equal(t, before, testutil.CollectAndCount(metrics.Generations))
}
