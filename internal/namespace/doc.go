// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package namespace provides the read-only tree the shell navigates.
//
// A Tree is built once from a Description (JSON, TOML or Go literals) and
// never changes shape afterwards. Paths are resolved against it relative to
// a caller-supplied working directory, so any number of sessions can share
// one Tree without locking.
//
// # Key Types
//
//   - Node: a directory or a leaf, tagged at construction
//   - Tree: the root, the home anchor and path rendering
//   - Description: the declarative input format
//   - PathError: a resolution failure wrapping ErrNotFound or ErrNotADirectory
//   - Source: the current Tree, swappable by a Watcher
//
// # Path Syntax
//
//	/a/b     absolute, starting at the root
//	~/a      relative to the home anchor
//	a/../b   relative to the working directory
//
// `..` at the root stays at the root.
//
// # Usage
//
//	tree, err := namespace.Build(namespace.DefaultDescription())
//	node, err := tree.Resolve("~/posts", tree.Home())
//	fmt.Println(tree.FullPath(node, true)) // ~/posts/
package namespace
