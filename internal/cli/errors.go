// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/luoli0706/Ning-Prompt/internal/config"
	"github.com/luoli0706/Ning-Prompt/internal/llm"
	"github.com/luoli0706/Ning-Prompt/internal/processor"
	"github.com/luoli0706/Ning-Prompt/internal/prompt"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the API could not be reached or failed
	ExitNetworkError = 5
	// ExitNotFoundError indicates a template or key was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
	// ExitInterrupted is the conventional code after SIGINT
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return NewValidationErrorWithExample(argName, "", "required argument missing", usage)
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w in the standard format, with a hint for
// the failures a user can fix themselves.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", RenderConditional(ErrorStyle, "[ERROR]"), err.Error())
	if hint := hintFor(err); hint != "" {
		fmt.Fprintf(w, "%s\n", RenderConditional(DimStyle, hint))
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, processor.ErrMissingAPIURL) || errors.Is(err, processor.ErrMissingAPIKey):
		return "Set them with: ningprompt config set api.url URL / ningprompt config set api.key KEY"
	case errors.Is(err, prompt.ErrTemplateNotFound):
		return "List templates with: ningprompt templates list (restore built-ins with: ningprompt templates seed)"
	case llm.IsTimeout(err):
		return "The API did not answer in time; check api.url or raise api.timeout_secs"
	}
	return ""
}

// GetExitCode maps an error onto an exit code:
//   - ExitUsageError (2): bad arguments or an empty prompt
//   - ExitConfigError (3): invalid config or missing API settings
//   - ExitNetworkError (5): transport or provider failure
//   - ExitNotFoundError (7): unknown template, key or file
//   - ExitTimeoutError (8): request timed out
//   - ExitGeneralError (1): everything else
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var cfgErr config.ValidateErrors
	var cfgFieldErr config.ValidationError

	switch {
	case errors.As(err, &validationErr), errors.Is(err, processor.ErrEmptyPrompt) &&
		!errors.Is(err, processor.ErrMissingAPIURL) && !errors.Is(err, processor.ErrMissingAPIKey):
		return ExitUsageError
	case errors.Is(err, processor.ErrMissingAPIURL), errors.Is(err, processor.ErrMissingAPIKey),
		errors.As(err, &cfgErr), errors.As(err, &cfgFieldErr):
		return ExitConfigError
	case errors.As(err, &notFoundErr), errors.Is(err, prompt.ErrTemplateNotFound):
		return ExitNotFoundError
	case llm.IsTimeout(err):
		return ExitTimeoutError
	case errors.Is(err, processor.ErrGenerationFailed), errors.Is(err, llm.ErrTransport), errors.Is(err, llm.ErrHTTPStatus):
		return ExitNetworkError
	}
	return ExitGeneralError
}
