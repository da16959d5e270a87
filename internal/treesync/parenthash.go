package treesync

import "bytes"

// unmergedLeafNodes converts a node's UnmergedLeaves (leaf indices) into
// the node indices Resolution itself reports its unmerged members under
// (2*leafIndex), so FilterResolution's exclude set lives in the same index
// space as the resolution it's filtering.
func (d *Diff) unmergedLeafNodes(unmergedLeaves []uint32) []uint32 {
	nodes := make([]uint32, len(unmergedLeaves))
	for i, li := range unmergedLeaves {
		nodes[i] = d.tree.Leaf(li)
	}
	return nodes
}

// resolutionKeys maps a resolution's node indices to the encryption-key
// bytes ComputeParentHash actually binds over; a resolution member with no
// encryption key (shouldn't happen for a non-blank node, but defensive
// against a malformed tree) is skipped rather than included as nil.
func (d *Diff) resolutionKeys(nodes []uint32) [][]byte {
	keys := make([][]byte, 0, len(nodes))
	for _, n := range nodes {
		node, err := d.tree.Node(n)
		if err != nil {
			continue
		}
		if k := node.EncryptionKey(); k != nil {
			keys = append(keys, k)
		}
	}
	return keys
}

// SetParentHashes recomputes and installs parent-hash extensions along
// leafIndex's direct path and its leaf, walking top-down from the root.
// Each direct-path node stores, as its parent hash, the hash computed at
// the node above it (empty for the root); the hash computed at a node binds
// that stored value together with the filtered resolution of the copath
// node beneath it, and the leaf stores the last hash computed. Grounded on
// original_source/openmls/src/treesync/diff.rs's set_parent_hashes.
func (d *Diff) SetParentHashes(leafIndex uint32) error {
	dp := d.tree.DirectPath(leafIndex)
	copathRes := d.CopathResolutions(leafIndex)
	if len(dp) != len(copathRes) {
		return errAtLeaf("set_parent_hashes", leafIndex, ErrPathLength)
	}

	previous := []byte{}
	for i := len(dp) - 1; i >= 0; i-- {
		n := dp[i]
		node, err := d.tree.Node(n)
		if err != nil {
			return errAtNode("set_parent_hashes", n, err)
		}
		if node.Parent == nil {
			return errAtNode("set_parent_hashes", n, ErrMissingParentHash)
		}
		filtered := FilterResolution(copathRes[i], d.unmergedLeafNodes(node.Parent.UnmergedLeaves))
		content := *node.Parent
		content.ParentHash = previous
		node.Parent = &content
		ph := d.provider.ComputeParentHash(content.ParentHash, d.resolutionKeys(filtered))
		if err := d.tree.SetNode(n, node); err != nil {
			return errAtNode("set_parent_hashes", n, err)
		}
		previous = ph
	}

	leaf, err := d.tree.LeafNode(leafIndex)
	if err != nil {
		return errAtLeaf("set_parent_hashes", leafIndex, err)
	}
	if leaf.Leaf == nil {
		return errAtLeaf("set_parent_hashes", leafIndex, ErrMissingParentHash)
	}
	leafContent := *leaf.Leaf
	leafContent.ParentHash = previous
	leaf.Leaf = &leafContent
	if err := d.tree.ReplaceLeaf(leafIndex, leaf); err != nil {
		return errAtLeaf("set_parent_hashes", leafIndex, err)
	}
	d.invalidateTreeHashPath(leafIndex)
	return nil
}

// VerifyParentHashes checks that one of nodeIndex's children continues its
// parent-hash chain: that child's stored parent hash must equal the hash of
// nodeIndex's own stored parent hash together with the filtered resolution
// of nodeIndex's other child. Grounded on
// diff.rs's verify_parent_hashes two-case search: case A treats the left
// child as the chain's continuation and verifies against the right
// child's filtered resolution; case B walks down the right side through
// blank internal nodes (via their left children) looking for the node
// whose chain the hash actually continues, failing if that walk bottoms
// out at a blank leaf.
func (d *Diff) VerifyParentHashes(nodeIndex uint32) error {
	node, err := d.tree.Node(nodeIndex)
	if err != nil {
		return errAtNode("verify_parent_hashes", nodeIndex, err)
	}
	if node.Parent == nil {
		return nil
	}

	left, err := d.tree.LeftChild(nodeIndex)
	if err != nil {
		return errAtNode("verify_parent_hashes", nodeIndex, err)
	}
	right, err := d.tree.RightChild(nodeIndex)
	if err != nil {
		return errAtNode("verify_parent_hashes", nodeIndex, err)
	}

	leftNode, err := d.tree.Node(left)
	if err != nil {
		return errAtNode("verify_parent_hashes", nodeIndex, err)
	}
	if !leftNode.IsBlank() {
		rightRes := FilterResolution(d.Resolution(right), d.unmergedLeafNodes(node.Parent.UnmergedLeaves))
		expected := d.provider.ComputeParentHash(node.Parent.ParentHash, d.resolutionKeys(rightRes))
		if bytes.Equal(expected, leftNode.ParentHash()) {
			return nil
		}
	}

	cursor := right
	for {
		cursorNode, err := d.tree.Node(cursor)
		if err != nil {
			return errAtNode("verify_parent_hashes", nodeIndex, err)
		}
		if d.tree.IsLeaf(cursor) {
			if cursorNode.IsBlank() {
				return errAtNode("verify_parent_hashes", nodeIndex, ErrInvalidParentHash)
			}
			break
		}
		if !cursorNode.IsBlank() {
			break
		}
		cursor, err = d.tree.LeftChild(cursor)
		if err != nil {
			return errAtNode("verify_parent_hashes", nodeIndex, err)
		}
	}

	sib, err := d.tree.Sibling(cursor)
	if err != nil {
		return errAtNode("verify_parent_hashes", nodeIndex, err)
	}
	cursorNode, err := d.tree.Node(cursor)
	if err != nil {
		return errAtNode("verify_parent_hashes", nodeIndex, err)
	}
	leftRes := FilterResolution(d.Resolution(sib), d.unmergedLeafNodes(node.Parent.UnmergedLeaves))
	expected := d.provider.ComputeParentHash(node.Parent.ParentHash, d.resolutionKeys(leftRes))
	if !bytes.Equal(expected, cursorNode.ParentHash()) {
		return errAtNode("verify_parent_hashes", nodeIndex, ErrParentHashMismatch)
	}
	return nil
}

// SetTreeHash computes and caches the tree hash of every node reachable
// from the root, returning the root's hash.
func (d *Diff) SetTreeHash() ([]byte, error) {
	return d.computeTreeHash(d.tree.Root())
}

func (d *Diff) computeTreeHash(n uint32) ([]byte, error) {
	node, err := d.tree.Node(n)
	if err != nil {
		return nil, errAtNode("compute_tree_hash", n, err)
	}
	if node.TreeHash != nil {
		return node.TreeHash, nil
	}

	var hash []byte
	if d.tree.IsLeaf(n) {
		leafIdx := n / 2
		hash = d.provider.ComputeTreeHash(&leafIdx, n, nil, nil)
	} else {
		left, err := d.tree.LeftChild(n)
		if err != nil {
			return nil, errAtNode("compute_tree_hash", n, err)
		}
		right, err := d.tree.RightChild(n)
		if err != nil {
			return nil, errAtNode("compute_tree_hash", n, err)
		}
		leftHash, err := d.computeTreeHash(left)
		if err != nil {
			return nil, err
		}
		rightHash, err := d.computeTreeHash(right)
		if err != nil {
			return nil, err
		}
		hash = d.provider.ComputeTreeHash(nil, n, leftHash, rightHash)
	}

	node.TreeHash = hash
	_ = d.tree.SetNode(n, node)
	return hash, nil
}
