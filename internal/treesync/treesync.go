package treesync

import (
	"github.com/groupkey/treesync/internal/binarytree"
	"github.com/groupkey/treesync/internal/crypto"
)

// TreeSync is the immutable, persisted view of a group's ratchet tree: the
// thing storage.Provider actually reads and writes. All mutation happens
// through a borrowed Diff, which is merged back via a StagedDiff to
// produce the next TreeSync generation — the base tree itself is never
// mutated in place, matching diff.rs's split between TreeSync and
// TreeSyncDiff.
type TreeSync struct {
	groupID  []byte
	tree     *binarytree.Tree[Node]
	provider crypto.Provider
}

// New creates a fresh, single-member TreeSync: one leaf, holding content,
// no internal nodes.
func New(groupID []byte, provider crypto.Provider, firstLeaf LeafNodeContent) *TreeSync {
	tree := binarytree.NewSingleLeaf(Node{Leaf: &firstLeaf})
	return &TreeSync{groupID: groupID, tree: tree, provider: provider}
}

// FromNodes reconstructs a TreeSync from a previously exported node array,
// e.g. one just read back out of storage.Provider.
func FromNodes(groupID []byte, provider crypto.Provider, nodes []Node) (*TreeSync, error) {
	tree, err := binarytree.NewFromNodes(nodes)
	if err != nil {
		return nil, err
	}
	return &TreeSync{groupID: groupID, tree: tree, provider: provider}, nil
}

// LeafCount returns the tree's current leaf count.
func (t *TreeSync) LeafCount() uint32 { return t.tree.LeafCount() }

// ExportNodes returns the tree's current node array, suitable for
// persisting via storage.Provider.
func (t *TreeSync) ExportNodes() []Node { return t.tree.ExportNodes() }

// Empty reports whether the tree holds no leaves at all.
func (t *TreeSync) Empty() bool { return t.tree.LeafCount() == 0 }

// Diff opens a mutable, borrowed view of the tree for ownLeaf to work
// against. The returned Diff must be staged and merged (or simply
// discarded) before any other Diff borrowed from this TreeSync is merged,
// matching diff.rs's single-writer borrow discipline.
func (t *TreeSync) Diff(ownLeaf uint32) *Diff {
	return newDiff(t.groupID, t.tree.NewDiff(), t.provider, ownLeaf)
}

// Merge folds a StagedDiff into a brand-new TreeSync generation, leaving
// this TreeSync (and any other Diff/StagedDiff still referencing it)
// completely unaffected.
func (t *TreeSync) Merge(staged *StagedDiff) *TreeSync {
	return &TreeSync{
		groupID:  t.groupID,
		tree:     staged.tree.Merge(t.tree),
		provider: t.provider,
	}
}
