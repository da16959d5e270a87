package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendGetMissingKey(t *testing.T) {
	b := NewMemoryBackend()
	v, ok, err := b.Get([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestMemoryBackendSetThenGetReturnsCopy(t *testing.T) {
	b := NewMemoryBackend()
	original := []byte("value")
	require.NoError(t, b.Set([]byte("key"), original))

	got, ok, err := b.Get([]byte("key"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original, got)

	// Mutating the caller's slice after Set must not affect stored state.
	original[0] = 'X'
	got2, _, err := b.Get([]byte("key"))
	require.NoError(t, err)
	assert.NotEqual(t, original, got2)
}

func TestMemoryBackendDelete(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Set([]byte("key"), []byte("value")))
	require.NoError(t, b.Delete([]byte("key")))
	_, ok, err := b.Get([]byte("key"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackendConcurrentAccess(t *testing.T) {
	b := NewMemoryBackend()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []byte{byte(i % 10)}
			require.NoError(t, b.Set(key, []byte("v")))
			_, _, err := b.Get(key)
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, b.Len(), 10)
}
