// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/luoli0706/Ning-Prompt/internal/processor"
	"github.com/luoli0706/Ning-Prompt/internal/prompt"
)

// explanation accompanies every successful process_prompt result.
const explanation = "Generated via MCP."

// Processor runs one-shot transformations.
type Processor interface {
	ProcessOnce(ctx context.Context, params processor.Params) (*processor.Result, error)
}

// Templates lists and resolves template files by name.
type Templates interface {
	ListCustomTemplates() []prompt.TemplateInfo
	Lookup(name string) (prompt.TemplateInfo, error)
}

// Settings supplies readiness and per-call defaults. *config.Store
// satisfies it.
type Settings interface {
	processor.Settings
	ResponseLanguage() string
	OutputFormat() string
	Temperature() float64
}

// Handler executes Requests.
type Handler struct {
	proc      Processor
	templates Templates
	settings  Settings
	logger    *slog.Logger
}

// NewHandler builds a Handler. A nil logger uses slog.Default().
func NewHandler(proc Processor, templates Templates, settings Settings, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{proc: proc, templates: templates, settings: settings, logger: logger}
}

// Decode parses a request body. A malformed body yields a ready-made error
// Response.
func Decode(body []byte) (*Request, *Response) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &Response{Error: &Error{Code: CodeParseError, Message: "Parse error: " + err.Error()}}
	}
	return &req, nil
}

// Execute dispatches req and always returns a Response; failures are
// reported in Response.Error, never as a Go error.
func (h *Handler) Execute(ctx context.Context, req *Request) *Response {
	resp := &Response{JSONRPC: req.JSONRPC, ID: req.ID}

	var (
		result any
		rpcErr *Error
	)
	switch req.Method {
	case MethodProcessPrompt:
		result, rpcErr = h.processPrompt(ctx, req)
	case MethodListTemplates:
		result, rpcErr = h.listTemplates(req)
	default:
		rpcErr = &Error{Code: CodeMethodNotFound, Message: "Method not found"}
	}

	if rpcErr != nil {
		h.logger.Info("mcp request failed", "method", req.Method, "code", rpcErr.Code)
		resp.Error = rpcErr
		return resp
	}
	resp.Result = result
	return resp
}

func (h *Handler) processPrompt(ctx context.Context, req *Request) (any, *Error) {
	var p ProcessParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "Invalid params: " + err.Error()}
		}
	}

	params, rpcErr := h.Prepare(p, req.Context)
	if rpcErr != nil {
		return nil, rpcErr
	}

	res, err := h.proc.ProcessOnce(ctx, params)
	if err != nil {
		return nil, ErrorFor(err)
	}
	return ProcessResult{
		ProcessedPrompt: res.Text,
		Explanation:     explanation,
		Meta:            Meta{Model: res.Model, Mode: res.Mode, RequestID: res.RequestID},
	}, nil
}

// Prepare validates p, fills defaults from mctx and the settings, and
// confines custom templates to the template directory: remote callers name
// a template, they never pass a path.
func (h *Handler) Prepare(p ProcessParams, mctx *Context) (processor.Params, *Error) {
	params := processor.Params{
		Mode:        strings.TrimSpace(p.Mode),
		Prompt:      p.Prompt,
		Temperature: h.settings.Temperature(),
		Language:    p.Language,
		Format:      p.OutputFormat,
	}
	if params.Mode == "" {
		return params, &Error{Code: CodeInvalidParams, Message: "Invalid params: mode is required"}
	}
	if len(params.Prompt) > MaxPromptLength {
		return params, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("Invalid params: prompt exceeds %d bytes", MaxPromptLength)}
	}
	if strings.ContainsAny(params.Mode, `/\`) || params.Mode == "." || params.Mode == ".." {
		return params, &Error{Code: CodeInvalidParams, Message: "Invalid params: bad mode name"}
	}
	if p.Temperature != nil {
		if *p.Temperature < 0 || *p.Temperature > 1 {
			return params, &Error{Code: CodeInvalidParams, Message: "Invalid params: temperature must be between 0 and 1"}
		}
		params.Temperature = *p.Temperature
	}
	if params.Language == "" && mctx != nil {
		params.Language = mctx.Language
	}
	if params.Language == "" {
		params.Language = h.settings.ResponseLanguage()
	}
	if params.Format == "" {
		params.Format = h.settings.OutputFormat()
	}

	if params.Mode == processor.ModeCustom && p.Template != "" {
		info, err := h.templates.Lookup(filepath.Base(p.Template))
		if err != nil {
			return params, &Error{Code: CodeTemplateNotFound, Message: err.Error()}
		}
		params.CustomPath = info.Path
	}
	if err := processor.CheckReady(h.settings, params.Prompt); err != nil {
		return params, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return params, nil
}

func (h *Handler) listTemplates(req *Request) (any, *Error) {
	var p ListTemplatesParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "Invalid params: " + err.Error()}
		}
	}

	infos := h.templates.ListCustomTemplates()
	out := ListTemplatesResult{Resources: make([]Resource, 0, len(infos))}
	for _, info := range infos {
		r := Resource{
			URI:         (&url.URL{Scheme: "file", Path: filepath.ToSlash(info.Path)}).String(),
			Name:        info.Name,
			MimeType:    "text/markdown",
			Description: info.Description,
		}
		if p.IncludeContent {
			data, err := os.ReadFile(info.Path)
			if err != nil {
				h.logger.Warn("template unreadable", "path", info.Path, "error", err)
				continue
			}
			r.Content = string(data)
		}
		out.Resources = append(out.Resources, r)
	}
	return out, nil
}

// ErrorFor maps processor errors onto MCP codes.
func ErrorFor(err error) *Error {
	switch {
	case errors.Is(err, prompt.ErrTemplateNotFound):
		return &Error{Code: CodeTemplateNotFound, Message: err.Error()}
	case errors.Is(err, processor.ErrResponseParse):
		return &Error{Code: CodeResponseParse, Message: fmt.Sprintf("Parse Error: %v", err)}
	default:
		return &Error{Code: CodeGenerationFailed, Message: err.Error()}
	}
}
