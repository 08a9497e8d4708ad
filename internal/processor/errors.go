// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package processor

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrGenerationFailed matches every *GenerationError.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrResponseParse matches every *ResponseParseError.
	ErrResponseParse = errors.New("response parse error")
)

// Validation failures reported by CheckReady.
var (
	ErrMissingAPIURL = errors.New("API URL is not configured")
	ErrMissingAPIKey = errors.New("API key is not configured")
	ErrEmptyPrompt   = errors.New("prompt is empty")
)

// GenerationError wraps a failed completion call. Err is the transport error
// (a *llm.RequestError) or the provider's own error message.
type GenerationError struct {
	Mode string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

// ResponseParseError reports a reply with no usable generated text. Raw is
// the undecoded body for diagnostics.
type ResponseParseError struct {
	Raw string
	Err error
}

const maxRawInMessage = 300

func (e *ResponseParseError) Error() string {
	raw := e.Raw
	if len(raw) > maxRawInMessage {
		cut := maxRawInMessage
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("failed to parse response: %v: %s", e.Err, raw)
	}
	return fmt.Sprintf("failed to parse response: no choices[0].message.content: %s", raw)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

func (e *ResponseParseError) Is(target error) bool { return target == ErrResponseParse }
