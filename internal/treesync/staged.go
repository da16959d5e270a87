package treesync

import "github.com/groupkey/treesync/internal/binarytree"

// StagedDiff is an immutable, merge-able snapshot of a Diff, mirroring
// diff.rs's into_staged_diff / StagedTreeSyncDiff. It carries both the
// structural overlay (via binarytree.StagedDiff) and the TreeSync-level
// state (own leaf index, own leaf secret, own private keys) a member needs
// to keep using after the commit that produced it is merged in.
type StagedDiff struct {
	groupID        []byte
	tree           *binarytree.StagedDiff[Node]
	ownLeaf        uint32
	ownLeafSecret  []byte
	ownPrivateKeys map[uint32][]byte
}

// LeafCount returns the staged tree's leaf count.
func (s *StagedDiff) LeafCount() uint32 { return s.tree.LeafCount() }

// OwnPrivateKey returns the private key this member derived for the given
// node index while building this staged diff, if any.
func (s *StagedDiff) OwnPrivateKey(nodeIndex uint32) ([]byte, bool) {
	k, ok := s.ownPrivateKeys[nodeIndex]
	return k, ok
}
