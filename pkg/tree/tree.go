// Package tree turns a flat list of per-file coverage details into a
// directory tree with coverage rolled up at every directory.
package tree

import (
	"sort"
	"strings"

	"github.com/jupierce/pr-coverage/pkg/coverage"
)

// Node is a directory or file in the coverage tree. A synthesized root that
// joins several top-level directories is a directory node with an empty name.
type Node struct {
	Name        string
	IsDirectory bool
	Children    []*Node
	Coverage    coverage.Stats
	// Detail is set on file nodes only
	Detail *coverage.FileDetail
}

// builtNode tracks a node together with its prefix key and depth
type builtNode struct {
	node  *Node
	key   string
	depth int
}

// Build constructs the tree for details. It returns nil when there is
// nothing to build.
func Build(details []coverage.FileDetail) *Node {
	if len(details) == 0 {
		return nil
	}

	nodes := make(map[string]*builtNode)
	var order []*builtNode
	linked := make(map[string]bool) // "parent\x00child"
	var roots []string
	seenRoot := make(map[string]bool)

	for i := range details {
		detail := details[i]
		parts := splitPath(detail.File)
		if len(parts) == 0 {
			continue
		}

		if !seenRoot[parts[0]] {
			seenRoot[parts[0]] = true
			roots = append(roots, parts[0])
		}

		for depth := range parts {
			key := strings.Join(parts[:depth+1], "/")
			isFile := depth == len(parts)-1

			bn, exists := nodes[key]
			if !exists {
				n := &Node{
					Name:        parts[depth],
					IsDirectory: !isFile,
				}
				if isFile {
					d := detail
					n.Coverage = d.Stats
					n.Detail = &d
				}
				bn = &builtNode{node: n, key: key, depth: depth + 1}
				nodes[key] = bn
				order = append(order, bn)
			}

			if depth == 0 {
				continue
			}
			parentKey := strings.Join(parts[:depth], "/")
			edge := parentKey + "\x00" + key
			if linked[edge] {
				continue
			}
			parent, ok := nodes[parentKey]
			if !ok {
				// parents are always created before their children
				panic("tree: missing parent node for " + key)
			}
			parent.node.Children = append(parent.node.Children, bn.node)
			linked[edge] = true
		}
	}

	if len(order) == 0 {
		return nil
	}

	rollup(order)

	for _, bn := range order {
		sortChildren(bn.node)
	}

	if len(roots) == 1 {
		return nodes[roots[0]].node
	}

	sort.Strings(roots)
	virtual := &Node{IsDirectory: true}
	for _, name := range roots {
		virtual.Children = append(virtual.Children, nodes[name].node)
	}
	virtual.Coverage = aggregate(virtual.Children)
	return virtual
}

// splitPath splits on '/' and drops empty segments
func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	parts := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// rollup recomputes directory coverage deepest-first, so every child is final
// by the time its parent is summed.
func rollup(order []*builtNode) {
	byDepth := make([]*builtNode, len(order))
	copy(byDepth, order)
	sort.SliceStable(byDepth, func(i, j int) bool {
		if byDepth[i].depth != byDepth[j].depth {
			return byDepth[i].depth > byDepth[j].depth
		}
		return byDepth[i].key < byDepth[j].key
	})

	for _, bn := range byDepth {
		n := bn.node
		if n.IsDirectory && len(n.Children) > 0 {
			n.Coverage = aggregate(n.Children)
		}
	}
}

func aggregate(children []*Node) coverage.Stats {
	stats := make([]coverage.Stats, len(children))
	for i, c := range children {
		stats[i] = c.Coverage
	}
	return coverage.Rollup(stats)
}

func sortChildren(n *Node) {
	sort.Slice(n.Children, func(i, j int) bool {
		return n.Children[i].Name < n.Children[j].Name
	})
}

// Walk visits root and its descendants in pre-order. Descent stops at file
// nodes.
func Walk(root *Node, fn func(n *Node, depth int)) {
	if root == nil {
		return
	}
	walk(root, 0, fn)
}

func walk(n *Node, depth int, fn func(n *Node, depth int)) {
	fn(n, depth)
	if !n.IsDirectory {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}
