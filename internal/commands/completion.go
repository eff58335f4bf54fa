// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"

	"github.com/jeranaias/treeshell/internal/namespace"
	"github.com/jeranaias/treeshell/internal/session"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completer computes tab completions from the command table and the tree.
// It never touches the cursor and ignores accessibility.
type Completer struct {
	registry *Registry
}

// NewCompleter creates a completer over the given command table.
func NewCompleter(registry *Registry) *Completer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Completer{registry: registry}
}

// Complete returns the candidates for the end of line and the suffix of line
// that a chosen candidate replaces.
//
// Only the last sub-command of a chained line is considered. The first word
// completes against command names; later words complete as paths.
func (c *Completer) Complete(sess *session.Session, line string) ([]string, string) {
	chain := SplitChained(line)
	last := chain[len(chain)-1]
	tokens := Tokenize(last)

	// a fresh word is starting
	if EndsWithUnescapedSpace(last) {
		if len(tokens) == 0 {
			return c.completeCommands("", true), ""
		}
		return listNames(sess.Cwd()), ""
	}

	if len(tokens) <= 1 {
		partial := ""
		if len(tokens) == 1 {
			partial = tokens[0]
		}
		return c.completeCommands(partial, false), partial
	}

	return completePath(sess, tokens[len(tokens)-1])
}

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

// completeCommands returns command names starting with partial. With all set
// every name gets a trailing space; otherwise only a unique match does.
func (c *Completer) completeCommands(partial string, all bool) []string {
	var matches []string
	for _, name := range c.registry.Names() {
		if strings.HasPrefix(name, partial) {
			matches = append(matches, name)
		}
	}

	if all || len(matches) == 1 {
		for i := range matches {
			matches[i] += " "
		}
	}
	return matches
}

// =============================================================================
// PATH COMPLETION
// =============================================================================

func completePath(sess *session.Session, fragment string) ([]string, string) {
	dir, prefix, err := sess.Tree().ResolveParent(fragment, sess.Cwd())
	if err != nil {
		return nil, ""
	}

	var matches []string
	for _, child := range dir.Children() {
		if strings.HasPrefix(child.Name(), prefix) {
			matches = append(matches, EscapeSpaces(child.DisplayName()))
		}
	}
	return matches, EscapeSpaces(prefix)
}

func listNames(dir *namespace.Node) []string {
	children := dir.Children()
	names := make([]string, 0, len(children))
	for _, child := range children {
		names = append(names, child.DisplayName())
	}
	return names
}

// =============================================================================
// LINE EDITOR ADAPTER
// =============================================================================

// LineCompleter adapts c to a word completer for line editors such as
// liner: the text before the cursor is completed, the text after it is
// left alone. pos counts runes, not bytes.
func (c *Completer) LineCompleter(sess *session.Session) func(line string, pos int) (string, []string, string) {
	return func(line string, pos int) (string, []string, string) {
		r := []rune(line)
		if pos < 0 || pos > len(r) {
			pos = len(r)
		}
		before, tail := string(r[:pos]), string(r[pos:])

		candidates, suffix := c.Complete(sess, before)
		if len(candidates) == 0 {
			return before, nil, tail
		}

		// the suffix is reported unescaped for command words
		if !strings.HasSuffix(before, suffix) {
			suffix = EscapeSpaces(suffix)
			if !strings.HasSuffix(before, suffix) {
				return before, nil, tail
			}
		}
		return before[:len(before)-len(suffix)], candidates, tail
	}
}

// CommonPrefix returns the longest prefix shared by every candidate.
func CommonPrefix(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	prefix := candidates[0]
	for _, c := range candidates[1:] {
		for !strings.HasPrefix(c, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
		if prefix == "" {
			break
		}
	}
	return prefix
}
