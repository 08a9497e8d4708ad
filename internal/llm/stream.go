// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync/atomic"
	"time"
)

// =============================================================================
// SSE READER
// =============================================================================

// doneSentinel terminates a stream.
const doneSentinel = "[DONE]"

// maxErrorRead caps how much of a failed streaming reply is read for the error.
const maxErrorRead = 64 * 1024

// dataPrefix omits the space after the colon: SSE makes it optional and some
// providers send "data:{...}", so a single leading space is dropped instead.
var dataPrefix = []byte("data:")

// eventReader pulls `data:` payloads out of a server-sent event body. Other
// fields (event:, id:, comments, blank separators) are skipped.
type eventReader struct {
	r *bufio.Reader
}

func newEventReader(r io.Reader) *eventReader {
	return &eventReader{r: bufio.NewReader(r)}
}

// next returns the next payload, io.EOF at a clean end of body, or the read
// error. A final line without a trailing newline is still returned.
func (e *eventReader) next() (string, error) {
	for {
		line, err := e.r.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimRight(line, "\r\n")
			if payload, ok := bytes.CutPrefix(line, dataPrefix); ok {
				payload = bytes.TrimPrefix(payload, []byte(" "))
				return string(payload), nil
			}
		}
		if err != nil {
			return "", err
		}
	}
}

// =============================================================================
// STREAMING CALLS
// =============================================================================

// Stream performs a streaming completion. Each content delta is yielded in
// arrival order; undecodable payloads are skipped. A transport failure, a
// non-2xx status or a broken body ends the sequence with one ("", err) pair
// carrying a *RequestError.
//
// The returned sequence is single-use: ranging over it again yields nothing.
func (c *Client) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		c.streamInto(ctx, req, yield)
	}
}

func (c *Client) streamInto(ctx context.Context, req Request, yield func(string, error) bool) {
	endpoint := redactURL(req.URL)

	httpReq, err := c.newRequest(ctx, req, true)
	if err != nil {
		yield("", &RequestError{Kind: KindTransport, URL: endpoint, Err: err})
		return
	}

	start := time.Now()
	c.logRequest(endpoint, req, true)

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		c.logger.Warn("llm stream failed", "endpoint", endpoint, "error", err)
		yield("", &RequestError{Kind: KindTransport, URL: endpoint, Err: err})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorRead))
		c.logger.Warn("llm stream rejected", "endpoint", endpoint, "status", resp.StatusCode)
		yield("", &RequestError{Kind: KindHTTPStatus, URL: endpoint, Status: resp.StatusCode, Body: string(body)})
		return
	}

	var fragments, skipped int
	defer func() {
		c.logger.Debug("llm stream closed", "endpoint", endpoint, "fragments", fragments,
			"skipped", skipped, "duration_ms", time.Since(start).Milliseconds())
	}()

	events := newEventReader(resp.Body)
	for {
		payload, err := events.next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield("", &RequestError{Kind: KindTransport, URL: endpoint, Err: fmt.Errorf("read stream: %w", err)})
			return
		}

		if strings.TrimSpace(payload) == doneSentinel {
			return
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			skipped++
			continue
		}
		text, ok := chunk.Content()
		if !ok || text == "" {
			continue
		}
		fragments++
		if !yield(text, nil) {
			return
		}
	}
}

// SendStreaming is Stream with failures folded into the text: the error, if
// any, arrives as one final fragment built by ErrorMarker.
func (c *Client) SendStreaming(ctx context.Context, req Request) iter.Seq[string] {
	return WithErrorMarkers(c.Stream(ctx, req))
}

// =============================================================================
// ERROR MARKERS
// =============================================================================

const (
	markerPrefix = "\n\n[Error: "
	markerSuffix = "]"
)

// ErrorMarker renders err as the bracketed fragment that ends a failed stream.
func ErrorMarker(err error) string {
	return markerPrefix + err.Error() + markerSuffix
}

// IsErrorMarker reports whether a fragment is a terminal error marker.
func IsErrorMarker(fragment string) bool {
	return strings.HasPrefix(fragment, markerPrefix) && strings.HasSuffix(fragment, markerSuffix)
}

// WithErrorMarkers flattens a (fragment, error) sequence: fragments pass
// through unchanged and the first error becomes a final marker fragment.
func WithErrorMarkers(seq iter.Seq2[string, error]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for fragment, err := range seq {
			if err != nil {
				yield(ErrorMarker(err))
				return
			}
			if !yield(fragment) {
				return
			}
		}
	}
}
