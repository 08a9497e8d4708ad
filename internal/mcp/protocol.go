// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mcp implements the JSON-RPC style envelope used by tools that
// drive ningprompt programmatically.
//
// Two methods are served:
//
//	process_prompt  run a transformation, reply with the processed prompt
//	list_templates  list the template files as resources
package mcp

import "encoding/json"

// Method names.
const (
	MethodProcessPrompt = "process_prompt"
	MethodListTemplates = "list_templates"
)

// MaxPromptLength bounds the prompt text of process_prompt, in bytes.
const MaxPromptLength = 100000

// Error codes. The -320xx range follows JSON-RPC's server-error convention.
const (
	CodeParseError       = -32700
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeGenerationFailed = -32000
	CodeResponseParse    = -32001
	CodeTemplateNotFound = -32002
)

// Context carries details about the caller's environment.
type Context struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Language  string `json:"language,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// Request is one call.
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Context *Context        `json:"context,omitempty"`
}

// Response carries exactly one of Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the error member of a Response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// ProcessParams are the params of process_prompt. Unset optional fields fall
// back to the configured defaults.
type ProcessParams struct {
	Mode         string   `json:"mode"`
	Prompt       string   `json:"prompt"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Language     string   `json:"language,omitempty"`
	OutputFormat string   `json:"output_format,omitempty"`
	// Template names a file in the template directory; used with mode "custom".
	Template string `json:"custom_template_path,omitempty"`
}

// ProcessResult is the result of process_prompt.
type ProcessResult struct {
	ProcessedPrompt string `json:"processed_prompt"`
	Explanation     string `json:"explanation"`
	Meta            Meta   `json:"meta"`
}

// Meta describes how a result was produced.
type Meta struct {
	Model     string `json:"model"`
	Mode      string `json:"mode"`
	RequestID string `json:"request_id,omitempty"`
}

// Resource describes a template file.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
}

// ListTemplatesParams are the params of list_templates.
type ListTemplatesParams struct {
	IncludeContent bool `json:"include_content,omitempty"`
}

// ListTemplatesResult is the result of list_templates.
type ListTemplatesResult struct {
	Resources []Resource `json:"resources"`
}
