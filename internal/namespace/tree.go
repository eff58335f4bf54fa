// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package namespace

import (
	"errors"
	"strings"
)

// Path syntax.
const (
	Separator  = "/"
	HomeMarker = "~"
	CurrentDir = "."
	ParentDir  = ".."
)

// =============================================================================
// TREE
// =============================================================================

// Tree owns the node graph built from a Description.
type Tree struct {
	root *Node
	home *Node
	size int
}

// Build validates d and constructs the tree it describes.
// When no record sets home, the root doubles as the home anchor.
func Build(d Description) (*Tree, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	t := &Tree{}
	t.root = t.build(d, nil)
	if t.home == nil {
		t.home = t.root
	}
	return t, nil
}

// MustBuild is like Build but panics on an invalid description.
// It is meant for descriptions written as Go literals.
func MustBuild(d Description) *Tree {
	t, err := Build(d)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tree) build(d Description, parent *Node) *Node {
	n := &Node{
		name:       d.Name,
		kind:       KindLeaf,
		accessible: !d.DenyAccess,
		target:     d.Target,
		home:       d.Home,
		parent:     parent,
	}
	t.size++
	if d.Home {
		t.home = n
	}
	if d.IsDir() {
		n.kind = KindDirectory
		n.children = make([]*Node, 0, len(d.Children()))
		for _, c := range d.Children() {
			n.children = append(n.children, t.build(c, n))
		}
	}
	return n
}

// Root returns the root directory.
func (t *Tree) Root() *Node {
	return t.root
}

// Home returns the home anchor.
func (t *Tree) Home() *Node {
	return t.home
}

// Size returns the number of nodes, root included.
func (t *Tree) Size() int {
	return t.size
}

// =============================================================================
// PATH RENDERING
// =============================================================================

// FullPath renders the path of n from the root, each directory followed by
// the separator. With relativeToHome set, nodes at or under the home anchor
// are rendered from "~" instead.
func (t *Tree) FullPath(n *Node, relativeToHome bool) string {
	var parts []string
	cur := n
	for cur != nil {
		if relativeToHome && cur == t.home && !cur.IsRoot() {
			parts = append(parts, HomeMarker+Separator)
			break
		}
		if cur.IsRoot() {
			parts = append(parts, Separator)
			break
		}
		parts = append(parts, cur.DisplayName())
		cur = cur.parent
	}

	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
	}
	return b.String()
}

// PromptPath renders n for a prompt: the full path without its trailing
// separator, or "/" for the root.
func (t *Tree) PromptPath(n *Node) string {
	p := t.FullPath(n, false)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, Separator)
	}
	return p
}

// =============================================================================
// WALK
// =============================================================================

// WalkFunc is called for every node visited by Walk.
type WalkFunc func(n *Node, depth int) error

// SkipDir may be returned by a WalkFunc to skip a directory's children.
var SkipDir = errors.New("skip this directory")

// Walk visits every node depth-first in stored order, starting at the root.
func (t *Tree) Walk(fn WalkFunc) error {
	return walk(t.root, 0, fn)
}

func walk(n *Node, depth int, fn WalkFunc) error {
	if err := fn(n, depth); err != nil {
		if errors.Is(err, SkipDir) {
			return nil
		}
		return err
	}
	for _, c := range n.children {
		if err := walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
