package binarytree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(leafCount int) *Tree[string] {
	nodes := make([]string, 2*leafCount-1)
	for i := range nodes {
		nodes[i] = "blank"
	}
	tree, _ := NewFromNodes(nodes)
	return tree
}

func TestDiffNodeReadsFromBaseThenOverlay(t *testing.T) {
	base := newTestTree(4)
	d := base.NewDiff()

	v, err := d.Node(0)
	require.NoError(t, err)
	assert.Equal(t, "blank", v)

	require.NoError(t, d.SetNode(0, "filled"))
	v, err = d.Node(0)
	require.NoError(t, err)
	assert.Equal(t, "filled", v)

	// The base tree itself is never mutated.
	assert.Equal(t, "blank", base.nodes[0])
}

func TestDiffAddLeafFirstLeaf(t *testing.T) {
	d := (&Tree[string]{}).NewDiff()
	idx := d.AddLeaf("parent", "leaf0")
	assert.Equal(t, LeafIndex(0), idx)
	assert.Equal(t, uint32(1), d.LeafCount())
	v, err := d.LeafNode(0)
	require.NoError(t, err)
	assert.Equal(t, "leaf0", v)
	assert.Empty(t, d.DirectPath(0))
}

func TestDiffAddLeafGrowsByTwoSlots(t *testing.T) {
	base := newTestTree(1)
	d := base.NewDiff()

	idx := d.AddLeaf("parent", "leaf1")
	assert.Equal(t, LeafIndex(1), idx)
	assert.Equal(t, uint32(2), d.LeafCount())
	assert.Equal(t, uint32(3), d.Size())

	v, err := d.LeafNode(1)
	require.NoError(t, err)
	assert.Equal(t, "leaf1", v)

	parentVal, err := d.Node(d.Root())
	require.NoError(t, err)
	assert.Equal(t, "parent", parentVal)
}

func TestDiffAddThenRemoveLeafRoundTrips(t *testing.T) {
	base := newTestTree(1)
	d := base.NewDiff()
	d.AddLeaf("parent", "leaf1")
	require.NoError(t, d.RemoveLeaf())
	assert.Equal(t, uint32(1), d.LeafCount())
	assert.Equal(t, uint32(1), d.Size())
}

func TestDiffRemoveLastLeafFails(t *testing.T) {
	base := newTestTree(1)
	d := base.NewDiff()
	err := d.RemoveLeaf()
	assert.ErrorIs(t, err, ErrLastLeaf)
}

func TestDiffSetDirectPathLengthMismatch(t *testing.T) {
	base := newTestTree(4)
	d := base.NewDiff()
	err := d.SetDirectPath(0, []string{"only-one"})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDiffSetDirectPathWritesEveryAncestor(t *testing.T) {
	base := newTestTree(4)
	d := base.NewDiff()
	dp := d.DirectPath(0)
	values := make([]string, len(dp))
	for i := range values {
		values[i] = "path-node"
	}
	require.NoError(t, d.SetDirectPath(0, values))
	for _, n := range dp {
		v, err := d.Node(n)
		require.NoError(t, err)
		assert.Equal(t, "path-node", v)
	}
}

func TestDiffStageAndMergeProducesIndependentTree(t *testing.T) {
	base := newTestTree(2)
	d := base.NewDiff()
	require.NoError(t, d.SetNode(0, "updated"))
	staged := d.Stage()

	merged := staged.Merge(base)
	v, err := (&Diff[string]{base: merged, overlay: map[NodeIndex]string{}, leafCount: merged.LeafCount()}).Node(0)
	require.NoError(t, err)
	assert.Equal(t, "updated", v)

	// The original base tree is unaffected by the merge.
	assert.Equal(t, "blank", base.nodes[0])
}

func TestDiffSiblingOfRootErrors(t *testing.T) {
	base := newTestTree(4)
	d := base.NewDiff()
	_, err := d.Sibling(d.Root())
	assert.ErrorIs(t, err, ErrRootHasNoSibling)
}

func TestDiffOutOfRangeNode(t *testing.T) {
	base := newTestTree(2)
	d := base.NewDiff()
	_, err := d.Node(999)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
