package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentRefIsDeterministic(t *testing.T) {
	data := []byte("a serialized key package")
	ref1, err := ContentRef(data)
	require.NoError(t, err)
	ref2, err := ContentRef(data)
	require.NoError(t, err)
	assert.Equal(t, ref1.String(), ref2.String())
}

func TestContentRefDiffersOnDifferentInput(t *testing.T) {
	ref1, err := ContentRef([]byte("key package A"))
	require.NoError(t, err)
	ref2, err := ContentRef([]byte("key package B"))
	require.NoError(t, err)
	assert.NotEqual(t, ref1.String(), ref2.String())
}

func TestWriteReadKeyPackageRoundTrip(t *testing.T) {
	p := NewProvider(NewMemoryBackend())
	data := []byte("serialized key package bytes")

	ref, err := WriteKeyPackage(p, 1, data)
	require.NoError(t, err)

	got, found, err := ReadKeyPackage(p, 1, ref)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, data, got)
}

func TestWriteKeyPackageIsIdempotentOnSameBytes(t *testing.T) {
	p := NewProvider(NewMemoryBackend())
	data := []byte("same key package bytes twice")

	ref1, err := WriteKeyPackage(p, 1, data)
	require.NoError(t, err)
	ref2, err := WriteKeyPackage(p, 1, data)
	require.NoError(t, err)
	assert.Equal(t, ref1.String(), ref2.String())
}

func TestWritePskBundleRoundTrip(t *testing.T) {
	p := NewProvider(NewMemoryBackend())
	data := []byte("serialized psk bundle bytes")

	ref, err := WritePskBundle(p, 1, data)
	require.NoError(t, err)

	got, found, err := ReadPskBundle(p, 1, ref)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, data, got)
}

// This only exercises the stub build (no "rocksdb" build tag); running
// with -tags rocksdb against a real RocksDB install takes the other file.
func TestRocksDBBackendUnavailableWithoutBuildTag(t *testing.T) {
	_, err := NewRocksDBBackend(RocksDBConfig{Path: t.TempDir()})
	require.Error(t, err)
}
