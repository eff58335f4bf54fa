// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides transcript persistence for treeshell sessions.
//
// Every command line a server session executes can be recorded together with
// its rendered output, so that clients can replay a session.
//
// # Key Types
//
//   - TranscriptStore: SQLite-backed transcript storage
//   - Entry: one executed line with its output
//   - SessionSummary: per-session line counts for listing
//
// # Usage
//
//	store, err := storage.Open(path)
//	defer store.Close()
//
//	entry, err := store.Append(ctx, storage.Entry{SessionID: id, Line: "ls"})
//	history, err := store.History(ctx, id, 100)
//
// # Storage Location
//
// Transcripts are stored in ~/.treeshell/transcripts.db by default.
package storage
