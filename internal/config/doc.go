// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates and persists ningprompt settings.
//
// # Key Types
//
//   - Config: every setting, grouped into api, generation, templates, ui,
//     server and logging sections
//   - Store: the live settings shared by the TUI, CLI and server; each
//     setter validates and saves immediately
//
// # Configuration Precedence
//
//   - Environment variables (NINGPROMPT_*), never persisted
//   - ~/.ningprompt/config.toml
//   - ~/.ningprompt/config.json, including the flat format of the original
//     desktop app (migrated to config.toml on first save)
//   - Built-in defaults
//
// # Usage
//
//	store, err := config.Open("")
//	if err != nil {
//	    return err
//	}
//	store.SetModel("gpt-4o-mini") // written to disk before returning
//	proc := processor.New(loader, client, store)
package config
