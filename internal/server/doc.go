// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the prompt pipeline over HTTP.
//
// # Endpoints
//
//   - POST /mcp                - MCP envelope (process_prompt, list_templates)
//   - POST /v1/process         - one-shot transformation
//   - POST /v1/process/stream  - streamed transformation (SSE)
//   - GET  /v1/templates       - template listing
//   - GET  /health             - health check
//   - GET  /metrics            - Prometheus metrics
//
// # Middleware
//
// Requests pass through panic recovery, security headers, request logging,
// per-IP rate limiting and, when a token is configured, bearer
// authentication. /health and /metrics skip authentication.
//
// # Usage
//
//	srv := server.New(server.Config{Addr: "127.0.0.1:8787"}, rpc, proc)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
