package binarytree

// This file implements the node-index arithmetic for a left-balanced,
// array-indexed binary tree: leaf i lives at node index 2*i, and internal
// nodes are addressed purely by the bit structure of their index, with no
// explicit parent/child pointers. size is always the current node_width,
// i.e. 2*leafCount-1.

// size returns the node_width for a tree holding leafCount leaves.
func size(leafCount uint32) uint32 {
	if leafCount == 0 {
		return 0
	}
	return 2*leafCount - 1
}

// leafCountForSize inverts size: the number of leaves a tree of the given
// node_width holds.
func leafCountForSize(treeSize uint32) uint32 {
	if treeSize == 0 {
		return 0
	}
	return (treeSize + 1) / 2
}

// log2 returns floor(log2(x)), with log2(0) == 0.
func log2(x uint32) uint32 {
	if x == 0 {
		return 0
	}
	var k uint32
	for x > 1 {
		x >>= 1
		k++
	}
	return k
}

// level returns the number of trailing one-bits of x. Leaves (even indices)
// are level 0; the root of a tree is the highest-level node present.
func level(x uint32) uint32 {
	if x&0x01 == 0 {
		return 0
	}
	var k uint32
	for (x>>k)&0x01 == 1 {
		k++
	}
	return k
}

// root returns the node index of the root of a tree with the given
// node_width.
func root(treeSize uint32) NodeIndex {
	if treeSize == 0 {
		return 0
	}
	return NodeIndex((uint32(1) << log2(treeSize)) - 1)
}

// left returns the left child of internal node x, without bounds checking
// against a tree size.
func left(x NodeIndex) NodeIndex {
	k := level(uint32(x))
	if k == 0 {
		return x
	}
	return NodeIndex(uint32(x) ^ (0x01 << (k - 1)))
}

// right returns the right child of internal node x, without bounds checking
// against a tree size.
func right(x NodeIndex) NodeIndex {
	k := level(uint32(x))
	if k == 0 {
		return x
	}
	return NodeIndex(uint32(x) ^ (0x03 << (k - 1)))
}

// parentStep computes the parent of x in the smallest complete binary tree
// containing x, ignoring the actual tree's size. Repeatedly applying it
// until the result falls below the true size yields the real parent.
func parentStep(x NodeIndex) NodeIndex {
	k := level(uint32(x))
	b := (uint32(x) >> (k + 1)) & 0x01
	return NodeIndex((uint32(x) | (1 << k)) ^ (b << (k + 1)))
}

// parent returns the parent of x in a tree of the given node_width. Calling
// parent on the root returns the root itself.
func parent(x NodeIndex, treeSize uint32) NodeIndex {
	r := root(treeSize)
	if x == r {
		return r
	}
	p := parentStep(x)
	for uint32(p) >= treeSize {
		p = parentStep(p)
	}
	return p
}

// sibling returns the other child of x's parent.
func sibling(x NodeIndex, treeSize uint32) NodeIndex {
	p := parent(x, treeSize)
	if x < p {
		r := right(p)
		for uint32(r) >= treeSize {
			r = left(r)
		}
		return r
	}
	return left(p)
}

// directPath returns the nodes from just above x up to and including the
// root, in that order. The root's direct path is empty.
func directPath(x NodeIndex, treeSize uint32) []NodeIndex {
	r := root(treeSize)
	if x == r {
		return nil
	}
	path := make([]NodeIndex, 0, log2(treeSize)+1)
	for x != r {
		x = parent(x, treeSize)
		path = append(path, x)
	}
	return path
}

// ancestorOrSelfSet returns x together with every node on its direct path,
// as a membership set, for use in locating a lowest common ancestor.
func ancestorOrSelfSet(x NodeIndex, treeSize uint32) map[NodeIndex]struct{} {
	dp := directPath(x, treeSize)
	set := make(map[NodeIndex]struct{}, len(dp)+1)
	set[x] = struct{}{}
	for _, n := range dp {
		set[n] = struct{}{}
	}
	return set
}

// subtreeRootPosition returns the zero-based index, within a's direct path,
// of the lowest common ancestor of leaf nodes a and b. If a == b it returns
// 0 (the node immediately above a).
func subtreeRootPosition(a, b NodeIndex, treeSize uint32) int {
	dpA := directPath(a, treeSize)
	if len(dpA) == 0 {
		return 0
	}
	bAncestors := ancestorOrSelfSet(b, treeSize)
	for i, n := range dpA {
		if _, ok := bAncestors[n]; ok {
			return i
		}
	}
	return len(dpA) - 1
}

// subtreeRootCopathNode returns the node in receiver's copath (the sibling
// sequence alongside its direct path) whose resolution covers sender: the
// sibling of the direct-path node immediately below the lowest common
// ancestor of sender and receiver.
func subtreeRootCopathNode(sender, receiver NodeIndex, treeSize uint32) NodeIndex {
	pos := subtreeRootPosition(receiver, sender, treeSize)
	dp := directPath(receiver, treeSize)
	var below NodeIndex
	if pos == 0 {
		below = receiver
	} else {
		below = dp[pos-1]
	}
	return sibling(below, treeSize)
}
