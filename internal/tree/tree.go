// Package tree holds the one traversal shared by the product tree and the
// legacy category tree.
package tree

import "strings"

// PathSeparator joins ancestor names in Flat.Path.
const PathSeparator = " > "

type Node[T any] struct {
	Name     string
	Value    T
	Children []Node[T]
}

// Flat is one node of a flattened tree. Path lists the node's ancestors,
// root first; it is empty for roots.
type Flat[T any] struct {
	Name  string
	Path  string
	Depth int
	Value T
}

// FullPath is Path plus the node itself.
func (f Flat[T]) FullPath() string {
	if f.Path == "" {
		return f.Name
	}
	return f.Path + PathSeparator + f.Name
}

// Flatten walks roots depth-first and returns every node, internal and
// leaf, in pre-order.
func Flatten[T any](roots []Node[T]) []Flat[T] {
	var out []Flat[T]
	var walk func(nodes []Node[T], ancestors []string)
	walk = func(nodes []Node[T], ancestors []string) {
		for _, n := range nodes {
			out = append(out, Flat[T]{
				Name:  n.Name,
				Path:  strings.Join(ancestors, PathSeparator),
				Depth: len(ancestors) + 1,
				Value: n.Value,
			})
			if len(n.Children) > 0 {
				walk(n.Children, append(ancestors[:len(ancestors):len(ancestors)], n.Name))
			}
		}
	}
	walk(roots, nil)
	return out
}

// From converts any recursive shape into nodes.
func From[S any, T any](src []S, name func(S) string, value func(S) T, children func(S) []S) []Node[T] {
	if len(src) == 0 {
		return nil
	}
	out := make([]Node[T], 0, len(src))
	for _, s := range src {
		out = append(out, Node[T]{
			Name:     name(s),
			Value:    value(s),
			Children: From(children(s), name, value, children),
		})
	}
	return out
}

// Depth returns the number of levels below and including roots.
func Depth[T any](roots []Node[T]) int {
	deepest := 0
	for _, n := range roots {
		if d := 1 + Depth(n.Children); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Count returns the number of nodes.
func Count[T any](roots []Node[T]) int {
	n := 0
	for _, r := range roots {
		n += 1 + Count(r.Children)
	}
	return n
}
