// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"strings"

	"github.com/jeranaias/treeshell/internal/namespace"
)

// Dispatch failures that are not path resolution errors.
var (
	ErrCommandNotFound = errors.New("command not found")
	ErrInvalidUsage    = errors.New("invalid usage")
)

// =============================================================================
// COMMAND ERROR
// =============================================================================

// CommandError is a failed sub-command. Its message is the line shown to the
// user.
type CommandError struct {
	// Command is the command name as typed
	Command string

	// Arg is the argument the failure concerns, if any
	Arg string

	// Usage is reported for ErrInvalidUsage
	Usage string

	Err error
}

func (e *CommandError) Error() string {
	switch {
	case errors.Is(e.Err, ErrCommandNotFound):
		return e.Command + ": command not found"
	case errors.Is(e.Err, ErrInvalidUsage):
		return "Usage: " + e.Usage
	default:
		return e.Command + ": " + e.Arg + ": " + namespace.Reason(e.Err)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// =============================================================================
// RESULT
// =============================================================================

// Entry is one listed node.
type Entry struct {
	// Name is the display name, directories ending in "/"
	Name string

	// Path is the full path, rendered from "~" inside the home subtree
	Path string

	// Target is the leaf's destination reference
	Target string

	Dir bool
}

// Result is the outcome of one sub-command.
type Result struct {
	Command string
	Args    []string

	// Entries listed by ls or by open on a directory
	Entries []Entry

	// Text is free-form output such as help or the welcome message
	Text string

	// Navigate is the target handed to the Opener by open on a leaf
	Navigate string

	Err error
}

// Failed reports whether the sub-command failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Lines renders the result the way a terminal shows it.
func (r Result) Lines() []string {
	var lines []string
	if r.Err != nil {
		lines = append(lines, r.Err.Error())
	}
	if r.Text != "" {
		lines = append(lines, strings.Split(r.Text, "\n")...)
	}
	for _, e := range r.Entries {
		lines = append(lines, e.Name)
	}
	return lines
}

func newEntry(tree *namespace.Tree, n *namespace.Node) Entry {
	return Entry{
		Name:   n.DisplayName(),
		Path:   tree.FullPath(n, true),
		Target: n.Target(),
		Dir:    n.IsDir(),
	}
}
