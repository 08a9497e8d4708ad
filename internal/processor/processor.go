// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package processor

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/luoli0706/Ning-Prompt/internal/llm"
	"github.com/luoli0706/Ning-Prompt/internal/metrics"
	"github.com/luoli0706/Ning-Prompt/internal/prompt"
)

// TriggerMessage is the user message sent after the rendered template.
const TriggerMessage = "Begin task."

// =============================================================================
// COLLABORATORS
// =============================================================================

// Renderer produces the system instruction for a template reference.
// *prompt.Loader satisfies it.
type Renderer interface {
	Render(ref prompt.TemplateRef, original, language, format string) (string, error)
}

// Transport performs completion calls. *llm.Client satisfies it.
type Transport interface {
	SendOnce(ctx context.Context, req llm.Request) (*llm.ChatResponse, error)
	Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error]
}

// Settings supplies the endpoint, credential and model. It is consulted
// before every call and never cached.
type Settings interface {
	APIURL() string
	APIKey() string
	Model() string
}

// =============================================================================
// TYPES
// =============================================================================

// Params are the per-call generation parameters.
type Params struct {
	Mode        string
	Prompt      string
	Temperature float64
	Language    string // origin, en, zh or a language name
	Format      string // markdown or plain
	CustomPath  string // only used when Mode is "custom"
}

// Ref returns the template the parameters select.
func (p Params) Ref() prompt.TemplateRef {
	return prompt.Resolve(p.Mode, p.CustomPath)
}

// Result is a completed one-shot transformation.
type Result struct {
	RequestID string
	Mode      string
	Model     string
	Text      string
	Usage     *llm.Usage
	Duration  time.Duration
}

// Processor binds templates, settings and transport together. It holds no
// per-call state and is safe for concurrent use.
type Processor struct {
	renderer  Renderer
	transport Transport
	settings  Settings
	logger    *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// New builds a Processor.
func New(renderer Renderer, transport Transport, settings Settings, opts ...Option) *Processor {
	p := &Processor{
		renderer:  renderer,
		transport: transport,
		settings:  settings,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// =============================================================================
// OPERATIONS
// =============================================================================

// ProcessOnce renders the template, performs a one-shot completion and
// extracts the generated text.
//
// Errors: template failures come back unchanged (errors.Is(err,
// prompt.ErrTemplateNotFound)); failed calls are *GenerationError; replies
// without usable text are *ResponseParseError.
func (p *Processor) ProcessOnce(ctx context.Context, params Params) (*Result, error) {
	id := uuid.NewString()
	ref := params.Ref()
	label := metricLabel(ref.Mode())
	log := p.logger.With("request_id", id, "mode", ref.Mode())

	req, err := p.build(ref, params)
	if err != nil {
		metrics.Generations.WithLabelValues(label, "once", metrics.OutcomeTemplate).Inc()
		log.Warn("template render failed", "error", err)
		return nil, err
	}
	metrics.PromptChars.Observe(float64(utf8.RuneCountInString(params.Prompt)))

	start := time.Now()
	log.Info("generation started", "model", req.Model, "delivery", "once")
	resp, err := p.transport.SendOnce(ctx, req)
	elapsed := time.Since(start)
	metrics.GenerationDuration.WithLabelValues(label).Observe(elapsed.Seconds())

	if err != nil {
		metrics.Generations.WithLabelValues(label, "once", metrics.OutcomeError).Inc()
		log.Warn("generation failed", "error", err, "duration_ms", elapsed.Milliseconds())
		if errors.Is(err, llm.ErrParse) {
			parseErr := &ResponseParseError{Err: err}
			var reqErr *llm.RequestError
			if errors.As(err, &reqErr) {
				parseErr.Raw = reqErr.Body
			}
			return nil, parseErr
		}
		return nil, &GenerationError{Mode: ref.Mode(), Err: err}
	}

	if msg := resp.APIError(); msg != "" {
		metrics.Generations.WithLabelValues(label, "once", metrics.OutcomeError).Inc()
		log.Warn("provider returned error", "error", msg)
		return nil, &GenerationError{Mode: ref.Mode(), Err: errors.New(msg)}
	}

	text, ok := resp.Text()
	if !ok {
		metrics.Generations.WithLabelValues(label, "once", metrics.OutcomeError).Inc()
		log.Warn("completion had no content", "bytes", len(resp.Raw))
		return nil, &ResponseParseError{Raw: string(resp.Raw)}
	}

	metrics.Generations.WithLabelValues(label, "once", metrics.OutcomeOK).Inc()
	log.Info("generation finished", "duration_ms", elapsed.Milliseconds(), "chars", utf8.RuneCountInString(text))

	return &Result{
		RequestID: id,
		Mode:      ref.Mode(),
		Model:     req.Model,
		Text:      text,
		Usage:     resp.Usage,
		Duration:  elapsed,
	}, nil
}

// ProcessStreaming renders the template and relays the streamed completion
// fragment by fragment. Any failure, including a missing template, arrives
// as one final bracketed marker (see llm.IsErrorMarker).
func (p *Processor) ProcessStreaming(ctx context.Context, params Params) iter.Seq[string] {
	return llm.WithErrorMarkers(p.Stream(ctx, params))
}

// Stream is ProcessStreaming with the failure kept out of the text: the
// sequence ends with a single ("", err) pair when something goes wrong.
// Like the transport stream it is single-use.
func (p *Processor) Stream(ctx context.Context, params Params) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		id := uuid.NewString()
		ref := params.Ref()
		label := metricLabel(ref.Mode())
	log := p.logger.With("request_id", id, "mode", ref.Mode())

		req, err := p.build(ref, params)
		if err != nil {
			metrics.Generations.WithLabelValues(label, "stream", metrics.OutcomeTemplate).Inc()
			log.Warn("template render failed", "error", err)
			yield("", err)
			return
		}
		metrics.PromptChars.Observe(float64(utf8.RuneCountInString(params.Prompt)))
		log.Info("generation started", "model", req.Model, "delivery", "stream")

		outcome := metrics.OutcomeOK
		defer func() {
			metrics.Generations.WithLabelValues(label, "stream", outcome).Inc()
		}()

		for fragment, err := range p.transport.Stream(ctx, req) {
			if err != nil {
				outcome = metrics.OutcomeError
				log.Warn("stream failed", "error", err)
				yield("", &GenerationError{Mode: ref.Mode(), Err: err})
				return
			}
			metrics.StreamFragments.Inc()
			if !yield(fragment, nil) {
				return
			}
		}
	}
}

// build renders the instruction and snapshots the current settings.
func (p *Processor) build(ref prompt.TemplateRef, params Params) (llm.Request, error) {
	instruction, err := p.renderer.Render(ref, params.Prompt, params.Language, params.Format)
	if err != nil {
		return llm.Request{}, err
	}
	return llm.Request{
		URL:    p.settings.APIURL(),
		APIKey: p.settings.APIKey(),
		Model:  p.settings.Model(),
		Messages: []llm.ChatMessage{
			llm.SystemMessage(instruction),
			llm.UserMessage(TriggerMessage),
		},
		Temperature: params.Temperature,
	}, nil
}

// CheckReady validates what the processor deliberately does not: a
// configured endpoint and key, and a non-blank prompt. Presentation layers
// call it before dispatching.
func CheckReady(settings Settings, promptText string) error {
	var errs []error
	if strings.TrimSpace(settings.APIURL()) == "" {
		errs = append(errs, ErrMissingAPIURL)
	}
	if strings.TrimSpace(settings.APIKey()) == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if strings.TrimSpace(promptText) == "" {
		errs = append(errs, ErrEmptyPrompt)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("not ready: %w", errors.Join(errs...))
}
