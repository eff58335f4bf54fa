// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders recorded session transcripts for sharing.
//
// # Supported Formats
//
//   - JSON: Every stored field, machine-readable
//   - Markdown: Frontmatter, one heading per line, fenced output
//   - HTML: Standalone page with embedded CSS and a light/dark theme toggle
//
// # Usage
//
//	exporter, err := export.ForFormat("markdown", export.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	path, err := export.ExportToFile(&export.Transcript{SessionID: id, Entries: entries}, exporter, nil)
package export
