package treesync

import (
	"bytes"

	"github.com/groupkey/treesync/internal/binarytree"
	"github.com/groupkey/treesync/internal/crypto"
)

// Diff is a mutable, borrowed view over a TreeSync's current tree, grounded
// on original_source/openmls/src/treesync/diff.rs's TreeSyncDiff. All of
// its mutating operations stage changes in the underlying binarytree.Diff
// overlay; nothing is visible outside the diff until it is merged back into
// a TreeSync via Stage()+Merge().
type Diff struct {
	groupID  []byte
	tree     *binarytree.Diff[Node]
	provider crypto.Provider

	ownLeaf        uint32
	ownLeafSecret  []byte
	ownPrivateKeys map[uint32][]byte
}

func newDiff(groupID []byte, tree *binarytree.Diff[Node], provider crypto.Provider, ownLeaf uint32) *Diff {
	return &Diff{
		groupID:        groupID,
		tree:           tree,
		provider:       provider,
		ownLeaf:        ownLeaf,
		ownPrivateKeys: make(map[uint32][]byte),
	}
}

// LeafCount returns the current number of leaves, blank or not.
func (d *Diff) LeafCount() uint32 { return d.tree.LeafCount() }

// Leaf returns the leaf content at index i, or ok=false if blank.
func (d *Diff) Leaf(i uint32) (LeafNodeContent, bool, error) {
	if i >= d.tree.LeafCount() {
		return LeafNodeContent{}, false, errAtLeaf("leaf", i, ErrUnknownLeaf)
	}
	n, err := d.tree.LeafNode(i)
	if err != nil {
		return LeafNodeContent{}, false, errAtLeaf("leaf", i, err)
	}
	if n.Leaf == nil {
		return LeafNodeContent{}, false, nil
	}
	return *n.Leaf, true, nil
}

func (d *Diff) clearHash(n uint32) {
	node, err := d.tree.Node(n)
	if err != nil || node.TreeHash == nil {
		return
	}
	node.TreeHash = nil
	_ = d.tree.SetNode(n, node)
}

func (d *Diff) invalidateTreeHashPath(leafIndex uint32) {
	d.clearHash(d.tree.Leaf(leafIndex))
	for _, n := range d.tree.DirectPath(leafIndex) {
		d.clearHash(n)
	}
}

// TrimTree removes trailing blank leaves from the right edge of the tree,
// stopping before the last remaining leaf regardless of its content
// (invariant I1: the tree always keeps at least one leaf).
func (d *Diff) TrimTree() {
	for d.tree.LeafCount() > 1 {
		last := d.tree.LeafCount() - 1
		n, err := d.tree.LeafNode(last)
		if err != nil || !n.IsBlank() {
			break
		}
		if err := d.tree.RemoveLeaf(); err != nil {
			break
		}
	}
}

// UpdateLeaf replaces the content at an existing, non-blank leaf. The
// leaf's direct path is blanked too (P2): the old path secrets no longer
// match the new leaf content, so every ancestor must be re-keyed by a
// follow-up update path before it can be trusted again, matching
// diff.rs:104's update_leaf.
func (d *Diff) UpdateLeaf(leafIndex uint32, content LeafNodeContent) error {
	if leafIndex >= d.tree.LeafCount() {
		return errAtLeaf("update_leaf", leafIndex, ErrUnknownLeaf)
	}
	if err := d.tree.ReplaceLeaf(leafIndex, Node{Leaf: &content}); err != nil {
		return errAtLeaf("update_leaf", leafIndex, err)
	}
	d.tree.SetDirectPathToNode(leafIndex, Node{})
	d.invalidateTreeHashPath(leafIndex)
	return nil
}

// AddLeaf installs content at the rightmost-scanned blank leaf if one
// exists, or extends the tree with a new leaf otherwise, and returns the
// leaf index used. Per spec's O1, the scan does not stop at the first
// blank it finds: it keeps scanning, so the last blank leaf encountered is
// the one reused — matching diff.rs's add_leaf loop, which has no break.
func (d *Diff) AddLeaf(content LeafNodeContent) uint32 {
	var blankIdx *uint32
	for i := uint32(0); i < d.tree.LeafCount(); i++ {
		n, err := d.tree.LeafNode(i)
		if err != nil {
			continue
		}
		if n.IsBlank() {
			idx := i
			blankIdx = &idx
		}
	}
	node := Node{Leaf: &content}
	var leafIndex uint32
	if blankIdx != nil {
		_ = d.tree.ReplaceLeaf(*blankIdx, node)
		leafIndex = *blankIdx
	} else {
		leafIndex = d.tree.AddLeaf(Node{}, node)
	}
	d.markUnmergedLeaf(leafIndex)
	d.invalidateTreeHashPath(leafIndex)
	return leafIndex
}

// markUnmergedLeaf records leafIndex as unmerged on every non-blank node
// along its direct path: those ancestors' encryption keys still predate
// this leaf joining, so the leaf can't yet decrypt under them until a
// future commit's update path re-keys that node, matching diff.rs:146's
// add_unmerged_leaf bookkeeping.
func (d *Diff) markUnmergedLeaf(leafIndex uint32) {
	for _, n := range d.tree.DirectPath(leafIndex) {
		node, err := d.tree.Node(n)
		if err != nil || node.Parent == nil {
			continue
		}
		content := *node.Parent
		content.UnmergedLeaves = append(append([]uint32(nil), node.Parent.UnmergedLeaves...), leafIndex)
		node.Parent = &content
		_ = d.tree.SetNode(n, node)
	}
}

// BlankLeaf removes a member: the leaf and every node on its direct path
// are blanked, then the tree is trimmed of any trailing blank leaves this
// exposes.
func (d *Diff) BlankLeaf(leafIndex uint32) error {
	if leafIndex >= d.tree.LeafCount() {
		return errAtLeaf("blank_leaf", leafIndex, ErrUnknownLeaf)
	}
	if err := d.tree.ReplaceLeaf(leafIndex, Node{}); err != nil {
		return errAtLeaf("blank_leaf", leafIndex, err)
	}
	d.tree.SetDirectPathToNode(leafIndex, Node{})
	d.invalidateTreeHashPath(leafIndex)
	d.TrimTree()
	return nil
}

// Resolution returns the resolution of node n: the set of non-blank nodes
// that collectively "cover" it for encryption purposes. A non-blank node
// resolves to itself plus its unmerged leaves; a blank leaf resolves to
// nothing; a blank parent resolves to the union of its children's
// resolutions.
func (d *Diff) Resolution(n uint32) []uint32 {
	node, err := d.tree.Node(n)
	if err != nil {
		return nil
	}
	if d.tree.IsLeaf(n) {
		if node.IsBlank() {
			return nil
		}
		return []uint32{n}
	}
	if node.IsBlank() {
		left, errL := d.tree.LeftChild(n)
		right, errR := d.tree.RightChild(n)
		if errL != nil || errR != nil {
			return nil
		}
		return append(d.Resolution(left), d.Resolution(right)...)
	}
	res := make([]uint32, 0, 1+len(node.UnmergedLeaves()))
	res = append(res, n)
	for _, li := range node.UnmergedLeaves() {
		res = append(res, d.tree.Leaf(li))
	}
	return res
}

// CopathResolutions returns, for each node on leafIndex's direct path, the
// resolution of the sibling of that node's child on the path (the leaf
// itself for the first entry), i.e. the copath node one level below it.
func (d *Diff) CopathResolutions(leafIndex uint32) [][]uint32 {
	dp := d.tree.DirectPath(leafIndex)
	out := make([][]uint32, len(dp))
	prev := d.tree.Leaf(leafIndex)
	for i, n := range dp {
		sib, err := d.tree.Sibling(prev)
		if err == nil {
			out[i] = d.Resolution(sib)
		}
		prev = n
	}
	return out
}

// FilterResolution removes the node indices in exclude from resolution,
// used to drop unmerged-leaf entries a particular recipient must not be
// sent key material for.
func FilterResolution(resolution []uint32, exclude []uint32) []uint32 {
	if len(exclude) == 0 {
		out := make([]uint32, len(resolution))
		copy(out, resolution)
		return out
	}
	excludeSet := make(map[uint32]struct{}, len(exclude))
	for _, e := range exclude {
		excludeSet[e] = struct{}{}
	}
	out := make([]uint32, 0, len(resolution))
	for _, n := range resolution {
		if _, ok := excludeSet[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// SetPathSecrets derives, along subtreePath(ownLeaf, senderLeaf), the HPKE
// key pair implied by each step of the path-secret chain seeded by
// startSecret, recording this member's own private keys as it goes. Nodes
// whose unmerged-leaves list still names ownLeaf are skipped for key
// derivation (this member hasn't merged into that subtree's view yet) but
// the secret chain still advances past them, mirroring diff.rs's
// set_path_secrets.
func (d *Diff) SetPathSecrets(ownLeaf, senderLeaf uint32, startSecret []byte, checkPublicKeys bool) error {
	path := d.tree.SubtreePath(ownLeaf, senderLeaf)
	secret := startSecret
	for _, n := range path {
		node, err := d.tree.Node(n)
		if err != nil {
			return errAtNode("set_path_secrets", n, err)
		}
		skip := false
		for _, li := range node.UnmergedLeaves() {
			if li == ownLeaf {
				skip = true
				break
			}
		}
		next, err := d.provider.DerivePathSecret(secret)
		if err != nil {
			return errAtNode("set_path_secrets", n, err)
		}
		if skip {
			secret = next
			continue
		}
		pub, priv, err := d.provider.DeriveKeyPair(secret)
		if err != nil {
			return errAtNode("set_path_secrets", n, err)
		}
		if checkPublicKeys {
			if existing := node.EncryptionKey(); existing != nil && !bytes.Equal(existing, pub) {
				return errAtNode("set_path_secrets", n, ErrPublicKeyMismatch)
			}
		}
		d.ownPrivateKeys[n] = priv
		secret = next
	}
	return nil
}

// UpdatePathNode is one level of a commit's encrypted update path: the new
// public key installed at that direct-path node and its parent hash.
type UpdatePathNode struct {
	EncryptionKey []byte
	ParentHash    []byte
}

// UpdatePath is a full commit path: a new leaf plus one UpdatePathNode per
// direct-path level, ordered the same way Diff's DirectPath is.
type UpdatePath struct {
	Leaf  LeafNodeContent
	Nodes []UpdatePathNode
}

// ApplyOwnUpdatePath installs a path this diff's owner generated: the new
// leaf is installed, every direct-path node gets its new public key and
// parent hash, and the path secrets derived from leafSecret are recorded
// as our own going forward.
func (d *Diff) ApplyOwnUpdatePath(leafIndex uint32, path UpdatePath, leafSecret []byte) error {
	if err := d.tree.ReplaceLeaf(leafIndex, Node{Leaf: &path.Leaf}); err != nil {
		return errAtLeaf("apply_own_update_path", leafIndex, err)
	}
	dp := d.tree.DirectPath(leafIndex)
	if len(dp) != len(path.Nodes) {
		return errAtLeaf("apply_own_update_path", leafIndex, ErrPathLength)
	}
	secret := leafSecret
	for i, n := range dp {
		pub, priv, err := d.provider.DeriveKeyPair(secret)
		if err != nil {
			return errAtNode("apply_own_update_path", n, err)
		}
		if !bytes.Equal(pub, path.Nodes[i].EncryptionKey) {
			return errAtNode("apply_own_update_path", n, ErrPublicKeyMismatch)
		}
		existing, _ := d.tree.Node(n)
		newParent := &ParentNodeContent{
			EncryptionKey:  path.Nodes[i].EncryptionKey,
			ParentHash:     path.Nodes[i].ParentHash,
			UnmergedLeaves: existing.UnmergedLeaves(),
		}
		if err := d.tree.SetNode(n, Node{Parent: newParent}); err != nil {
			return errAtNode("apply_own_update_path", n, err)
		}
		d.ownPrivateKeys[n] = priv
		secret, err = d.provider.DerivePathSecret(secret)
		if err != nil {
			return errAtNode("apply_own_update_path", n, err)
		}
	}
	d.ownLeafSecret = leafSecret
	d.ownLeaf = leafIndex
	d.invalidateTreeHashPath(leafIndex)
	return nil
}

// ReApplyOwnUpdatePath re-installs this diff owner's most recently applied
// own update path against the diff's current state. openmls applies a
// member's own commit twice — once optimistically when it is created, once
// when it comes back from the delivery service — and the second pass must
// reproduce exactly the same keys without re-deriving leafSecret from
// scratch.
func (d *Diff) ReApplyOwnUpdatePath(leafIndex uint32, path UpdatePath) error {
	if d.ownLeafSecret == nil {
		return errAtLeaf("re_apply_own_update_path", leafIndex, ErrNoPrivateKeyFound)
	}
	return d.ApplyOwnUpdatePath(leafIndex, path, d.ownLeafSecret)
}

// ApplyReceivedUpdatePath installs a path a different member's commit
// generated: the sender's new leaf and direct-path public keys/parent
// hashes are installed unconditionally. When startSecret is non-nil (this
// member could decrypt a path secret for the commit), the overlapping
// portion of the path is also folded into our own private keys via
// SetPathSecrets.
func (d *Diff) ApplyReceivedUpdatePath(ownLeaf, senderLeaf uint32, path UpdatePath, startSecret []byte) error {
	if err := d.tree.ReplaceLeaf(senderLeaf, Node{Leaf: &path.Leaf}); err != nil {
		return errAtLeaf("apply_received_update_path", senderLeaf, err)
	}
	dp := d.tree.DirectPath(senderLeaf)
	if len(dp) != len(path.Nodes) {
		return errAtLeaf("apply_received_update_path", senderLeaf, ErrPathLength)
	}
	for i, n := range dp {
		existing, _ := d.tree.Node(n)
		newParent := &ParentNodeContent{
			EncryptionKey:  path.Nodes[i].EncryptionKey,
			ParentHash:     path.Nodes[i].ParentHash,
			UnmergedLeaves: existing.UnmergedLeaves(),
		}
		if err := d.tree.SetNode(n, Node{Parent: newParent}); err != nil {
			return errAtNode("apply_received_update_path", n, err)
		}
	}
	d.invalidateTreeHashPath(senderLeaf)
	if startSecret != nil {
		return d.SetPathSecrets(ownLeaf, senderLeaf, startSecret, true)
	}
	return nil
}

// ProcessUpdatePath is the commit-processing entry point combining
// ApplyReceivedUpdatePath with this member's decryption of the commit's
// path secret, when one was addressed to them.
func (d *Diff) ProcessUpdatePath(ownLeaf, senderLeaf uint32, path UpdatePath, startSecret []byte) error {
	return d.ApplyReceivedUpdatePath(ownLeaf, senderLeaf, path, startSecret)
}

// DecryptionKey locates a private key this member holds whose public half
// appears in the resolution of the copath node, on senderLeaf's own direct
// path, that covers ownLeaf's subtree — i.e. the node the committer
// actually encrypted a path secret to for this member — by searching
// ownLeaf's own leaf node plus every node on ownLeaf's direct path.
func (d *Diff) DecryptionKey(ownLeaf, senderLeaf uint32) (nodeIndex uint32, privateKey []byte, err error) {
	copathNode := d.tree.SubtreeRootCopathNode(ownLeaf, senderLeaf)
	candidates := d.Resolution(copathNode)
	search := append([]uint32{d.tree.Leaf(ownLeaf)}, d.tree.DirectPath(ownLeaf)...)
	for _, cand := range candidates {
		for _, s := range search {
			if cand != s {
				continue
			}
			if priv, ok := d.ownPrivateKeys[s]; ok {
				return s, priv, nil
			}
		}
	}
	return 0, nil, errAtLeaf("decryption_key", ownLeaf, ErrNoPrivateKeyFound)
}

// Root returns the node index of the tree's current root, the node
// VerifyParentHashes is typically called against after a commit.
func (d *Diff) Root() uint32 { return d.tree.Root() }

// DirectPathLength returns the number of nodes on leafIndex's direct path —
// the length an UpdatePath's Nodes slice must match to be accepted by
// ApplyOwnUpdatePath/ApplyReceivedUpdatePath.
func (d *Diff) DirectPathLength(leafIndex uint32) (int, error) {
	if leafIndex >= d.tree.LeafCount() {
		return 0, errAtLeaf("direct_path_length", leafIndex, ErrUnknownLeaf)
	}
	return len(d.tree.DirectPath(leafIndex)), nil
}

// ExportNodes returns the diff's current full node array.
func (d *Diff) ExportNodes() ([]Node, error) {
	return d.tree.ExportNodes()
}

// Stage freezes the diff into a StagedDiff that TreeSync.Merge can fold
// into a new, independent base tree.
func (d *Diff) Stage() *StagedDiff {
	ownKeys := make(map[uint32][]byte, len(d.ownPrivateKeys))
	for k, v := range d.ownPrivateKeys {
		ownKeys[k] = v
	}
	return &StagedDiff{
		groupID:        d.groupID,
		tree:           d.tree.Stage(),
		ownLeaf:        d.ownLeaf,
		ownLeafSecret:  d.ownLeafSecret,
		ownPrivateKeys: ownKeys,
	}
}
