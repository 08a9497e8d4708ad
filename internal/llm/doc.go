// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm is the HTTP client for OpenAI-compatible chat-completion
// endpoints.
//
// The client owns a pooled connection transport for its whole lifetime and
// nothing else: endpoint URL, API key and model travel with every Request, so
// a settings change takes effect on the next call without rebuilding the
// client.
//
// # Key Types
//
//   - Client: one-shot (SendOnce) and streaming (Stream, SendStreaming) calls
//   - Request: per-call endpoint, credentials, model, messages, temperature
//   - ChatResponse: typed completion with Text() and the raw body retained
//   - RequestError: transport, HTTP status, decode and shape failures
//
// # Streaming
//
// Stream yields (fragment, nil) pairs and at most one terminal ("", err).
// SendStreaming flattens that into plain fragments where a failure becomes a
// final bracketed marker, so output already shown stays valid and the error
// is visible at its tail:
//
//	for frag := range client.SendStreaming(ctx, req) {
//	    fmt.Print(frag)
//	}
//
// Breaking out of either loop closes the response body.
//
// # Security
//
// API keys are only ever written to the Authorization header. Logs carry
// the endpoint host and path, the model and status, never bodies or keys.
package llm
