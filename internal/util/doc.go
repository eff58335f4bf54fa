// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides helpers shared across treeshell.
//
// # Key Functions
//
// Display Width:
//   - StringWidth: terminal columns of a string
//   - TruncateWidth, TruncateLeft: width-aware truncation with ellipsis
//   - PadRight: pad to a column width
//
// Logging:
//   - NewLogger: zap logger in console or json format
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	logger, err := util.NewLogger("info", "console")
//
//	// Keep the end of a long prompt path
//	shown := util.TruncateLeft(path, 40)
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0644)
package util
