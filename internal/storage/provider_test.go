package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	Name string
	Age  int
}

func TestWriteReadRoundTrip(t *testing.T) {
	p := NewProvider(NewMemoryBackend())
	err := Write(p, LabelTreeSyncNode, "group-1", 1, testNode{Name: "alice", Age: 30})
	require.NoError(t, err)

	got, found, err := Read[testNode](p, LabelTreeSyncNode, "group-1", 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, testNode{Name: "alice", Age: 30}, got)
}

func TestReadMissingKeyReturnsZeroNotPanic(t *testing.T) {
	// O3: storage reads never panic on a missing key.
	p := NewProvider(NewMemoryBackend())
	got, found, err := Read[testNode](p, LabelTreeSyncNode, "no-such-group", 1)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, testNode{}, got)
}

func TestReadListOfMissingKeyReturnsEmptySlice(t *testing.T) {
	p := NewProvider(NewMemoryBackend())
	list, err := ReadList[string](p, LabelQueuedProposal, "group-1", 1)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestAppendGrowsList(t *testing.T) {
	p := NewProvider(NewMemoryBackend())
	require.NoError(t, Append(p, LabelQueuedProposal, "group-1", 1, "proposal-a"))
	require.NoError(t, Append(p, LabelQueuedProposal, "group-1", 1, "proposal-b"))

	list, err := ReadList[string](p, LabelQueuedProposal, "group-1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"proposal-a", "proposal-b"}, list)
}

func TestDifferentVersionsAreIndependent(t *testing.T) {
	p := NewProvider(NewMemoryBackend())
	require.NoError(t, Write(p, LabelGroupContext, "group-1", 1, "v1-context"))
	require.NoError(t, Write(p, LabelGroupContext, "group-1", 2, "v2-context"))

	v1, found, err := Read[string](p, LabelGroupContext, "group-1", 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v1-context", v1)

	v2, found, err := Read[string](p, LabelGroupContext, "group-1", 2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v2-context", v2)
}

func TestDeleteRemovesValue(t *testing.T) {
	p := NewProvider(NewMemoryBackend())
	require.NoError(t, Write(p, LabelOwnLeafIndex, "group-1", 1, 3))
	require.NoError(t, Delete(p, LabelOwnLeafIndex, "group-1", 1))

	_, found, err := Read[int](p, LabelOwnLeafIndex, "group-1", 1)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMigrateCopiesToNewVersion(t *testing.T) {
	p := NewProvider(NewMemoryBackend())
	require.NoError(t, Write(p, LabelGroupContext, "group-1", 1, "old-shape"))
	require.NoError(t, Migrate(p, LabelGroupContext, "group-1", 1, 2))

	v1, found, err := Read[string](p, LabelGroupContext, "group-1", 1)
	require.NoError(t, err)
	assert.True(t, found, "migrate must not remove the source version")
	assert.Equal(t, "old-shape", v1)

	v2, found, err := Read[string](p, LabelGroupContext, "group-1", 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "old-shape", v2)
}

func TestMigrateOfMissingKeyIsNoop(t *testing.T) {
	p := NewProvider(NewMemoryBackend())
	err := Migrate(p, LabelGroupContext, "never-written", 1, 2)
	assert.NoError(t, err)
}

func TestClearProposalQueueLeavesRefsDangling(t *testing.T) {
	// O2: clearing the proposal body list does not also clear the ref
	// list storing which refs were ever queued — the accepted gap from
	// original_source's clear_proposal_queue, reproduced as-is here.
	p := NewProvider(NewMemoryBackend())
	require.NoError(t, Append(p, LabelQueuedProposal, "group-1", 1, "proposal-a"))
	require.NoError(t, Append(p, LabelProposalQueueRefs, "group-1", 1, "ref-a"))

	require.NoError(t, Delete(p, LabelQueuedProposal, "group-1", 1))

	_, found, err := Read[[]string](p, LabelQueuedProposal, "group-1", 1)
	require.NoError(t, err)
	assert.False(t, found)

	refs, err := ReadList[string](p, LabelProposalQueueRefs, "group-1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ref-a"}, refs, "refs list is left dangling, matching the known gap")
}

func TestQueueProposalIsTwoNonAtomicWrites(t *testing.T) {
	// O4: queueing a proposal is modeled as two independent writes (refs,
	// then body), with no transaction spanning them.
	p := NewProvider(NewMemoryBackend())
	require.NoError(t, Append(p, LabelProposalQueueRefs, "group-1", 1, "ref-a"))
	require.NoError(t, Write(p, LabelQueuedProposal, "ref-a", 1, "proposal-body"))

	refs, err := ReadList[string](p, LabelProposalQueueRefs, "group-1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ref-a"}, refs)

	body, found, err := Read[string](p, LabelQueuedProposal, "ref-a", 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "proposal-body", body)
}
