// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package structure resolves the directory/file tree of a repository up to a
// bounded depth and renders it as indented text. Traversal fans out over
// sibling subtrees concurrently; output is deterministic because children
// are sorted before rendering.
package structure

import (
	"sort"
	"strings"
)

// NodeKind discriminates the tree node union.
type NodeKind int

const (
	// KindDirectory is an interior node with children.
	KindDirectory NodeKind = iota

	// KindFile is a leaf with a repository path.
	KindFile

	// KindTruncated is the synthetic leaf marking a subtree cut off at
	// the depth limit.
	KindTruncated
)

// Node is one node of a resolved repository tree.
type Node struct {
	Kind     NodeKind
	Name     string
	Path     string  // files only
	Children []*Node // directories only
}

// truncatedNode marks a directory whose contents were cut off at the
// configured depth limit.
func truncatedNode() *Node {
	return &Node{Kind: KindTruncated, Name: "..."}
}

// sortChildren orders children by (kind, name) recursively: directories
// before files, names ascending within a kind, path as tie-break. Sorting
// before rendering makes output independent of fetch completion order.
func sortChildren(n *Node) {
	if n == nil || len(n.Children) == 0 {
		return
	}
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Path < b.Path
	})
	for _, c := range n.Children {
		sortChildren(c)
	}
}

// Render returns the indented ASCII form of the tree. The root prints its
// bare name; every level below uses box-drawing connectors, with the last
// child of a directory marked differently from its siblings.
func Render(root *Node) string {
	var sb strings.Builder
	sb.WriteString(root.Name)
	renderChildren(&sb, root, "")
	return sb.String()
}

func renderChildren(sb *strings.Builder, n *Node, prefix string) {
	for i, child := range n.Children {
		last := i == len(n.Children)-1

		connector := "├── "
		childPrefix := prefix + "│   "
		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		sb.WriteString("\n")
		sb.WriteString(prefix)
		sb.WriteString(connector)
		sb.WriteString(child.Name)

		if child.Kind == KindDirectory {
			renderChildren(sb, child, childPrefix)
		}
	}
}

// MaxDepth returns the deepest directory nesting in the tree, counting the
// root as depth zero. Used by tests to verify the traversal bound.
func MaxDepth(root *Node) int {
	deepest := 0
	for _, c := range root.Children {
		if c.Kind != KindDirectory {
			continue
		}
		if d := MaxDepth(c) + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}
