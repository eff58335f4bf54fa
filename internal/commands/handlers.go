// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/treeshell/internal/namespace"
	"github.com/jeranaias/treeshell/internal/session"
)

// =============================================================================
// NAVIGATION HANDLERS
// =============================================================================

func handleCd(ctx *Context, args []string) Result {
	path := namespace.HomeMarker
	if len(args) > 0 {
		path = args[0]
	}

	res := Result{Command: "cd", Args: args}
	if err := ChangeDir(ctx.Session, path); err != nil {
		res.Err = &CommandError{Command: "cd", Arg: path, Err: err}
	}
	return res
}

func handleLs(ctx *Context, args []string) Result {
	path := namespace.CurrentDir
	if len(args) > 0 {
		path = args[0]
	}

	res := Result{Command: "ls", Args: args}
	n, err := resolveAccessible(ctx.Session, path)
	if err != nil {
		res.Err = &CommandError{Command: "ls", Arg: path, Err: err}
		return res
	}
	res.Entries = list(ctx.Session.Tree(), n)
	return res
}

func handleOpen(ctx *Context, args []string) Result {
	res := Result{Command: "open", Args: args}
	if len(args) == 0 {
		res.Err = &CommandError{Command: "open", Usage: openUsage, Err: ErrInvalidUsage}
		return res
	}

	path := args[0]
	n, err := resolveAccessible(ctx.Session, path)
	if err != nil {
		res.Err = &CommandError{Command: "open", Arg: path, Err: err}
		return res
	}

	// a directory is entered and listed
	if n.IsDir() {
		if err := ctx.Session.Chdir(n); err != nil {
			res.Err = &CommandError{Command: "open", Arg: path, Err: err}
			return res
		}
		res.Entries = list(ctx.Session.Tree(), n)
		return res
	}

	res.Navigate = n.Target()
	if ctx.Opener != nil && res.Navigate != "" {
		if err := ctx.Opener.Open(res.Navigate); err != nil {
			ctx.Logger.Warn("opener failed", zap.String("target", res.Navigate), zap.Error(err))
			res.Err = &CommandError{Command: "open", Arg: path, Err: err}
		}
	}
	return res
}

// =============================================================================
// INFORMATION HANDLERS
// =============================================================================

func handleHelp(ctx *Context, _ []string) Result {
	var b strings.Builder
	b.WriteString("Available commands are listed below:")
	for _, cmd := range ctx.Registry.All() {
		fmt.Fprintf(&b, "\n    %-14s -- %s", "`"+cmd.Usage+"`", cmd.Description)
	}
	return Result{Command: "help", Text: b.String()}
}

func handleWelcome(ctx *Context, _ []string) Result {
	return Result{Command: "welcome", Text: ctx.Welcome}
}

// =============================================================================
// HELPERS
// =============================================================================

const openUsage = "open <path>"

// ChangeDir moves the cursor to path if it names an accessible directory.
// path is taken literally; no tokenizing or chaining is applied.
func ChangeDir(sess *session.Session, path string) error {
	n, err := sess.Resolve(path)
	if err != nil {
		return err
	}
	if !n.IsDir() {
		return &namespace.PathError{Path: path, Err: namespace.ErrNotADirectory}
	}
	if !n.Accessible() {
		return &namespace.PathError{Path: path, Err: namespace.ErrPermissionDenied}
	}
	return sess.Chdir(n)
}

func resolveAccessible(sess *session.Session, path string) (*namespace.Node, error) {
	n, err := sess.Resolve(path)
	if err != nil {
		return nil, err
	}
	if !n.Accessible() {
		return nil, &namespace.PathError{Path: path, Err: namespace.ErrPermissionDenied}
	}
	return n, nil
}

// list returns the children of a directory, or the leaf itself.
func list(tree *namespace.Tree, n *namespace.Node) []Entry {
	if !n.IsDir() {
		return []Entry{newEntry(tree, n)}
	}
	children := n.Children()
	entries := make([]Entry, 0, len(children))
	for _, c := range children {
		entries = append(entries, newEntry(tree, c))
	}
	return entries
}
