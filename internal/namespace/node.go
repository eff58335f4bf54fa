// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package namespace

// =============================================================================
// NODE KIND
// =============================================================================

// Kind tells directories and leaves apart. It is fixed when the node is built.
type Kind int

const (
	KindLeaf Kind = iota
	KindDirectory
)

// String returns a lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// =============================================================================
// NODE
// =============================================================================

// Node is one entry of the namespace.
//
// Nodes are only created by Build and are never modified afterwards, which is
// what makes a Tree safe to share between sessions.
type Node struct {
	name       string
	kind       Kind
	accessible bool
	target     string
	home       bool

	// parent is nil for the root only
	parent   *Node
	children []*Node
}

// Name returns the node name. The root's name is not part of any path.
func (n *Node) Name() string {
	return n.name
}

// Kind returns whether the node is a directory or a leaf.
func (n *Node) Kind() Kind {
	return n.kind
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.kind == KindDirectory
}

// Accessible reports whether the node may be listed, entered or opened.
func (n *Node) Accessible() bool {
	return n.accessible
}

// Target returns the opaque destination attached to the node, if any.
func (n *Node) Target() string {
	return n.target
}

// IsHome reports whether the node is the home anchor.
func (n *Node) IsHome() bool {
	return n.home
}

// Parent returns the owning directory, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.parent == nil
}

// Children returns a copy of the children in stored order.
// Leaves have no children and return nil.
func (n *Node) Children() []*Node {
	if n.kind != KindDirectory {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Len returns the number of children.
func (n *Node) Len() int {
	return len(n.children)
}

// Child returns the first child named name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// DisplayName returns the name with a trailing separator for directories.
func (n *Node) DisplayName() string {
	if n.kind == KindDirectory {
		return n.name + Separator
	}
	return n.name
}

// IsWithin reports whether n is anc or one of its descendants.
func (n *Node) IsWithin(anc *Node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == anc {
			return true
		}
	}
	return false
}
