// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package namespace

import (
	"errors"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

// Resolution failures. Their messages are the reasons shown to the user.
var (
	ErrNotFound         = errors.New("No such file or directory")
	ErrNotADirectory    = errors.New("Not a directory")
	ErrPermissionDenied = errors.New("Permission denied")
)

// PathError records the path that failed to resolve and why.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Reason returns the user-visible reason for a resolution error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrNotADirectory):
		return ErrNotADirectory.Error()
	case errors.Is(err, ErrPermissionDenied):
		return ErrPermissionDenied.Error()
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve maps path to a node, starting from cwd for relative paths.
//
// Accessibility is not checked: "cd" and "ls" require it, completion does
// not, so that decision is left to the caller.
func (t *Tree) Resolve(path string, cwd *Node) (*Node, error) {
	if path == "" {
		return nil, &PathError{Path: path, Err: ErrNotFound}
	}

	origin, segments := t.origin(strings.Split(path, Separator), cwd)
	n, err := step(origin, segments)
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}
	return n, nil
}

// ResolveParent resolves every segment of fragment but the last and returns
// the containing directory together with that last segment. It is used to
// complete a partially typed path.
func (t *Tree) ResolveParent(fragment string, cwd *Node) (*Node, string, error) {
	parts := strings.Split(fragment, Separator)
	if len(parts) == 1 {
		return cwd, parts[0], nil
	}

	origin, rest := t.origin(parts, cwd)
	dir, err := step(origin, rest[:len(rest)-1])
	if err == nil && !dir.IsDir() {
		err = ErrNotADirectory
	}
	if err != nil {
		return nil, "", &PathError{Path: fragment, Err: err}
	}
	return dir, rest[len(rest)-1], nil
}

// origin picks where a walk starts and strips the marker segment: the home
// anchor for "~", the root for a leading separator, cwd otherwise.
func (t *Tree) origin(parts []string, cwd *Node) (*Node, []string) {
	switch {
	case parts[0] == HomeMarker:
		return t.home, parts[1:]
	case parts[0] == "" && len(parts) > 1:
		return t.root, parts[1:]
	default:
		return cwd, parts
	}
}

// step walks segments from n.
func step(n *Node, segments []string) (*Node, error) {
	for _, seg := range segments {
		switch seg {
		case "", CurrentDir:
			if !n.IsDir() {
				return nil, ErrNotADirectory
			}
		case ParentDir:
			if n.parent != nil {
				n = n.parent
			}
		default:
			if !n.IsDir() {
				return nil, ErrNotADirectory
			}
			child := n.Child(seg)
			if child == nil {
				return nil, ErrNotFound
			}
			n = child
		}
	}
	return n, nil
}
