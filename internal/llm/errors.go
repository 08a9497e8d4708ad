// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"
)

// ErrorKind classifies a failed request.
type ErrorKind int

const (
	// KindTransport covers DNS, connect, TLS, timeout and mid-body read failures.
	KindTransport ErrorKind = iota
	// KindHTTPStatus is a non-2xx reply; Status and Body are set.
	KindHTTPStatus
	// KindDecode is a body that is not JSON at all; Body holds the raw text.
	KindDecode
	// KindParse is valid JSON that does not fit the completion schema.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindDecode:
		return "decode"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against a *RequestError of the same kind.
var (
	ErrTransport  = errors.New("transport error")
	ErrHTTPStatus = errors.New("http status error")
	ErrDecode     = errors.New("response decode error")
	ErrParse      = errors.New("response parse error")
)

// maxErrorBody bounds how much of a reply body is echoed in Error().
const maxErrorBody = 512

// RequestError describes a failed call to the completion endpoint.
type RequestError struct {
	Kind   ErrorKind
	URL    string // host and path only
	Status int
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("error response %d while requesting %s: %s", e.Status, e.URL, clip(e.Body))
	case KindDecode:
		return fmt.Sprintf("failed to decode JSON response from %s: %s", e.URL, clip(e.Body))
	case KindParse:
		return fmt.Sprintf("unexpected response shape from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("an error occurred while requesting %s: %v", e.URL, e.Err)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is matches the kind sentinel so callers can write errors.Is(err, ErrHTTPStatus).
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrParse:
		return e.Kind == KindParse
	}
	return false
}

// KindOf returns the kind of a *RequestError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}

// IsTimeout reports whether err was caused by a deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func clip(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
