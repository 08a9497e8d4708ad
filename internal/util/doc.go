// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small file and text helpers shared by the config store,
// the template seeder and the terminal surfaces.
//
//   - WriteFileAtomic: temp file, fsync, rename
//   - FitWidth / PadWidth: display-width aware clipping for CJK prompts
//   - FirstLine: one-line previews of multi-line prompts
package util
