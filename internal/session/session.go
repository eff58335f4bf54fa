// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/treeshell/internal/namespace"
)

// ErrNotDirectory is returned when the cursor would be moved onto a leaf.
var ErrNotDirectory = errors.New("session: cursor must be a directory")

// =============================================================================
// SESSION
// =============================================================================

// Session is the per-shell state layered on an immutable tree: the current
// location cursor and the home anchor.
//
// A Session belongs to one shell at a time and is not safe for concurrent
// use. The tree it points to may be shared freely.
type Session struct {
	id        string
	tree      *namespace.Tree
	cwd       *namespace.Node
	startTime time.Time
}

// New starts a session on tree with the cursor at the home anchor.
func New(tree *namespace.Tree) *Session {
	return &Session{
		id:        generateSessionID(),
		tree:      tree,
		cwd:       tree.Home(),
		startTime: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Tree returns the tree the session navigates.
func (s *Session) Tree() *namespace.Tree {
	return s.tree
}

// Cwd returns the current location.
func (s *Session) Cwd() *namespace.Node {
	return s.cwd
}

// Home returns the home anchor.
func (s *Session) Home() *namespace.Node {
	return s.tree.Home()
}

// StartTime returns when the session was created.
func (s *Session) StartTime() time.Time {
	return s.startTime
}

// Resolve resolves path against the current location.
func (s *Session) Resolve(path string) (*namespace.Node, error) {
	return s.tree.Resolve(path, s.cwd)
}

// Chdir moves the cursor. Access checks are the caller's job; Chdir only
// refuses leaves.
func (s *Session) Chdir(n *namespace.Node) error {
	if n == nil || !n.IsDir() {
		return ErrNotDirectory
	}
	s.cwd = n
	return nil
}

// Prompt renders the current location for a prompt.
func (s *Session) Prompt() string {
	return s.tree.PromptPath(s.cwd)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateSessionID creates a unique session ID.
func generateSessionID() string {
	return "sess_" + uuid.NewString()
}
