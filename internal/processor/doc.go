// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package processor turns a (mode, prompt, parameters) triple into a
// completion call and shapes the reply.
//
// A Processor is built from three injected collaborators: a Renderer for
// templates, a Transport for the network and a Settings source read
// immediately before every call, so edits to the endpoint, key or model apply
// to the next request without rebuilding anything.
//
// Every request is the same two-message exchange: the rendered template as
// the system message and the fixed trigger "Begin task." as the user message.
//
// Callers own input validation; see CheckReady.
package processor
