// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the treeshell command line.
//
// The root command starts the interactive shell; subcommands run single
// lines, print the tree, serve sessions over HTTP and manage configuration
// and stored transcripts.
//
// # Commands
//
//   - shell: Interactive shell with completion and history (default)
//   - run: Execute one command line, optionally as JSON
//   - tree: Print every node of the namespace
//   - serve: HTTP API (see package server)
//   - config: show, get, set, path, keys
//   - transcripts: List, print and prune recorded sessions
//   - version: Build information
//
// # Exit Codes
//
// Errors returned from Execute map to exit codes through GetExitCode:
// 1 for general failures, 2 for usage errors, 3 for configuration errors,
// 4 for tree description errors and 7 for missing resources.
//
// # Usage
//
//	if err := cli.Execute(); err != nil {
//		os.Exit(cli.GetExitCode(err))
//	}
package cli
