package binarytree

import "testing"

func TestRootSingleLeaf(t *testing.T) {
	if got := root(1); got != 0 {
		t.Fatalf("root(1) = %d, want 0", got)
	}
}

func TestDirectPathLength(t *testing.T) {
	// An 8-leaf tree (size 15) has direct paths of length log2(8) = 3 for
	// every leaf except none (all leaves are equally deep in a full tree).
	sz := size(8)
	for i := uint32(0); i < 8; i++ {
		dp := directPath(2*i, sz)
		if len(dp) != 3 {
			t.Fatalf("leaf %d: direct path length = %d, want 3", i, len(dp))
		}
		if dp[len(dp)-1] != root(sz) {
			t.Fatalf("leaf %d: direct path does not end at root", i)
		}
	}
}

func TestSiblingIsInvolution(t *testing.T) {
	sz := size(8)
	for n := NodeIndex(0); n < sz; n++ {
		if n == root(sz) {
			continue
		}
		s := sibling(n, sz)
		if sibling(s, sz) != n {
			t.Fatalf("sibling(sibling(%d)) != %d", n, n)
		}
	}
}

func TestSubtreeRootPositionSameLeaf(t *testing.T) {
	sz := size(8)
	if pos := subtreeRootPosition(2*3, 2*3, sz); pos != 0 {
		t.Fatalf("subtreeRootPosition(x,x) = %d, want 0", pos)
	}
}

func TestSubtreeRootPositionAdjacentLeaves(t *testing.T) {
	sz := size(8)
	// Leaves 0 and 1 share their immediate parent: position 0.
	pos := subtreeRootPosition(0, 2, sz)
	if pos != 0 {
		t.Fatalf("subtreeRootPosition(leaf0,leaf1) = %d, want 0", pos)
	}
}

func TestSubtreeRootPositionFarLeaves(t *testing.T) {
	sz := size(8)
	// Leaves 0 and 7 only share the root: position is the last index of
	// leaf 0's direct path.
	dp := directPath(0, sz)
	pos := subtreeRootPosition(0, 14, sz)
	if pos != len(dp)-1 {
		t.Fatalf("subtreeRootPosition(leaf0,leaf7) = %d, want %d", pos, len(dp)-1)
	}
}
