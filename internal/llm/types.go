// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"encoding/json"
	"strings"
)

// Message roles used by this tool.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is one entry of the messages array.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// Request carries everything one call needs. Nothing here is retained by the
// Client after the call returns.
type Request struct {
	URL         string
	APIKey      string
	Model       string
	Messages    []ChatMessage
	Temperature float64
}

// chatBody is the JSON sent on the wire. Temperature has no omitempty:
// 0.0 is a legitimate, deliberate setting.
type chatBody struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

// =============================================================================
// ONE-SHOT RESPONSE
// =============================================================================

// ChatResponse is the typed body of a non-streaming completion.
type ChatResponse struct {
	ID      string          `json:"id,omitempty"`
	Model   string          `json:"model,omitempty"`
	Choices []Choice        `json:"choices"`
	Usage   *Usage          `json:"usage,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`

	// Raw is the undecoded body, kept for diagnostics.
	Raw []byte `json:"-"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int           `json:"index"`
	Message      *ReplyMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ReplyMessage is the assistant message inside a choice. Content is a
// pointer so that a missing field can be told apart from an empty reply.
type ReplyMessage struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content"`
}

// Usage reports token accounting when the provider supplies it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Text returns choices[0].message.content and whether it was present.
func (r *ChatResponse) Text() (string, bool) {
	if r == nil || len(r.Choices) == 0 {
		return "", false
	}
	msg := r.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", false
	}
	return *msg.Content, true
}

// APIError returns the provider's error message when the body carries an
// "error" member, either as a string or as {"message": ...}.
func (r *ChatResponse) APIError() string {
	if r == nil || len(r.Error) == 0 || string(r.Error) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	}
	if err := json.Unmarshal(r.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return strings.TrimSpace(string(r.Error))
}

// =============================================================================
// STREAM CHUNK
// =============================================================================

// StreamChunk is one decoded `data:` payload of a streaming completion.
type StreamChunk struct {
	ID      string `json:"id,omitempty"`
	Choices []struct {
		Delta struct {
			Role    string  `json:"role,omitempty"`
			Content *string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

// Content returns the first choice's delta text and whether it was present.
func (c *StreamChunk) Content() (string, bool) {
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil {
		return "", false
	}
	return *c.Choices[0].Delta.Content, true
}
