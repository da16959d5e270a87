package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHPKEProviderDeriveKeyPair(t *testing.T) {
	p := NewHPKEProvider()

	secret := []byte("leaf secret material, 32+ bytes long for testing")

	pub1, priv1, err := p.DeriveKeyPair(secret)
	require.NoError(t, err)
	assert.NotEmpty(t, pub1)
	assert.NotEmpty(t, priv1)

	pub2, priv2, err := p.DeriveKeyPair(secret)
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2, "key derivation must be deterministic")
	assert.Equal(t, priv1, priv2)

	pub3, _, err := p.DeriveKeyPair([]byte("a different secret"))
	require.NoError(t, err)
	assert.NotEqual(t, pub1, pub3)
}

func TestHPKEProviderDeriveKeyPairEmptySecret(t *testing.T) {
	p := NewHPKEProvider()
	_, _, err := p.DeriveKeyPair(nil)
	assert.ErrorIs(t, err, ErrEmptyPathSecret)
}

func TestHPKEProviderDerivePathSecret(t *testing.T) {
	p := NewHPKEProvider()

	s0 := []byte("initial path secret")
	s1, err := p.DerivePathSecret(s0)
	require.NoError(t, err)
	s2, err := p.DerivePathSecret(s0)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	s3, err := p.DerivePathSecret(s1)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s3)
}

func TestHPKEProviderHash(t *testing.T) {
	p := NewHPKEProvider()
	h1 := p.Hash([]byte("hello"))
	h2 := p.Hash([]byte("hello"))
	h3 := p.Hash([]byte("world"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 32)
}

func TestHPKEProviderComputeParentHash(t *testing.T) {
	p := NewHPKEProvider()

	a := p.ComputeParentHash([]byte{}, [][]byte{[]byte("pk1"), []byte("pk2")})
	b := p.ComputeParentHash([]byte{}, [][]byte{[]byte("pk1"), []byte("pk2")})
	c := p.ComputeParentHash([]byte{}, [][]byte{[]byte("pk2"), []byte("pk1")})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "order of the resolution must affect the hash")
}

func TestHPKEProviderComputeTreeHash(t *testing.T) {
	p := NewHPKEProvider()

	leafIdx := uint32(3)
	leafHash := p.ComputeTreeHash(&leafIdx, 0, nil, nil)
	parentHash := p.ComputeTreeHash(nil, 5, []byte("left"), []byte("right"))
	assert.NotEqual(t, leafHash, parentHash)

	parentHash2 := p.ComputeTreeHash(nil, 5, []byte("left"), []byte("right"))
	assert.Equal(t, parentHash, parentHash2)
}
