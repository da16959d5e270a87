// Package binarytree implements the structural primitive spec §4.1 and §9
// call for: a left-balanced, array-indexed binary tree, plus a mutable,
// overlay-based Diff over it. The package knows nothing about TreeSync
// semantics (blank vs. filled nodes, parent hashes, credentials) — it is
// generic over the node payload type T, grounded on ethereum-go-verkle's
// separation of a tree's structural shape from the values it holds, adapted
// here to the array-of-nodes representation this spec's algorithms assume
// rather than verkle's pointer-linked internal nodes.
package binarytree

// NodeIndex addresses any node, leaf or internal, in the flat array
// representation: leaf i sits at index 2*i. It is a plain alias for
// uint32 (rather than pkg/types.NodeIndex's defined type) so it mixes
// freely with the unadorned uint32 arithmetic treemath.go performs.
type NodeIndex = uint32

// LeafIndex addresses a leaf by its position among leaves only.
type LeafIndex = uint32

// Tree is an immutable, left-balanced binary tree over nodes of type T. A
// StagedDiff is merged into one of these to produce the next immutable
// generation; Tree values are never mutated in place.
type Tree[T any] struct {
	nodes []T
}

// NewFromNodes builds a Tree directly from a flat node array, ordered
// exactly as the array representation requires (even indices are leaves).
// len(nodes) must be 2*leafCount-1 for some leafCount >= 1.
func NewFromNodes[T any](nodes []T) (*Tree[T], error) {
	if len(nodes) == 0 || len(nodes)%2 == 0 {
		return nil, ErrNodeCountMismatch
	}
	cp := make([]T, len(nodes))
	copy(cp, nodes)
	return &Tree[T]{nodes: cp}, nil
}

// NewSingleLeaf builds the smallest possible tree: one leaf, no parent.
func NewSingleLeaf[T any](leaf T) *Tree[T] {
	return &Tree[T]{nodes: []T{leaf}}
}

// LeafCount returns the number of leaves in the tree, including blank ones.
func (t *Tree[T]) LeafCount() uint32 {
	return leafCountForSize(uint32(len(t.nodes)))
}

// Size returns the node_width: the total count of leaf and internal nodes.
func (t *Tree[T]) Size() uint32 {
	return uint32(len(t.nodes))
}

// ExportNodes returns a copy of the tree's flat node array, in the array
// representation's canonical order.
func (t *Tree[T]) ExportNodes() []T {
	out := make([]T, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// NewDiff opens a mutable Diff borrowing this tree as its base.
func (t *Tree[T]) NewDiff() *Diff[T] {
	return &Diff[T]{
		base:      t,
		overlay:   make(map[NodeIndex]T),
		leafCount: t.LeafCount(),
	}
}
