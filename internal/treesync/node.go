// Package treesync implements the MLS ratchet-tree diff engine: the
// TreeSyncDiff / StagedTreeSyncDiff pair that layers group semantics
// (blank vs. filled nodes, parent hashes, unmerged leaves, credentials)
// over the structural binarytree.Diff. Grounded throughout on
// original_source/openmls/src/treesync/diff.rs, the Rust implementation
// this package's operations are distilled from.
package treesync

import "github.com/groupkey/treesync/internal/crypto"

// Credential identifies the member holding a leaf: a display name bound to
// an Ed25519 signature key. This supplements spec.md, which left leaf
// identity opaque — original_source's LeafNode carries a credential with
// exactly this shape (signature-scheme tag + public key + identity bytes).
type Credential struct {
	Identity        []byte
	SignatureScheme string
	SignatureKey    crypto.Signer `json:"-"`
	PublicKey       []byte
}

// LeafNodeContent is the payload of a non-blank leaf.
type LeafNodeContent struct {
	EncryptionKey  []byte
	Credential     Credential
	ParentHash     []byte
	UnmergedLeaves []uint32
}

// ParentNodeContent is the payload of a non-blank internal node.
type ParentNodeContent struct {
	EncryptionKey  []byte
	ParentHash     []byte
	UnmergedLeaves []uint32
}

// Node is the value binarytree.Diff is instantiated over: either variant
// may be nil, meaning the node is blank.
type Node struct {
	Leaf   *LeafNodeContent
	Parent *ParentNodeContent

	// TreeHash caches the last computed tree hash for this node, cleared
	// whenever the node or a descendant changes (set_tree_hash in
	// original_source walks bottom-up and only recomputes stale nodes).
	TreeHash []byte
}

// IsBlank reports whether neither variant is populated.
func (n Node) IsBlank() bool {
	return n.Leaf == nil && n.Parent == nil
}

// EncryptionKey returns the node's HPKE public key, or nil if blank.
func (n Node) EncryptionKey() []byte {
	switch {
	case n.Leaf != nil:
		return n.Leaf.EncryptionKey
	case n.Parent != nil:
		return n.Parent.EncryptionKey
	default:
		return nil
	}
}

// ParentHash returns the node's stored parent-hash field, or nil if blank
// or if the node is a leaf with no parent hash set yet.
func (n Node) ParentHash() []byte {
	switch {
	case n.Leaf != nil:
		return n.Leaf.ParentHash
	case n.Parent != nil:
		return n.Parent.ParentHash
	default:
		return nil
	}
}

// UnmergedLeaves returns the node's unmerged-leaf list, or nil if blank or
// a leaf (leaves never carry an unmerged-leaf list of their own).
func (n Node) UnmergedLeaves() []uint32 {
	if n.Parent != nil {
		return n.Parent.UnmergedLeaves
	}
	return nil
}

// blankNode is the zero value, re-exported for readability at call sites.
var blankNode = Node{}
