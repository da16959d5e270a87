package crypto

import "crypto/ed25519"

// Signer interface for signing operations
type Signer interface {
	// Sign signs the given data and returns the signature
	Sign(data []byte) ([]byte, error)

	// SignBase64 signs data and returns base64-encoded signature
	SignBase64(data []byte) (string, error)

	// PublicKey returns the public key associated with this signer
	PublicKey() ed25519.PublicKey

	// PublicKeyBase64 returns the public key as base64
	PublicKeyBase64() string
}

// Verifier interface for signature verification
type Verifier interface {
	// Verify verifies a signature against data using the given public key
	Verify(publicKey ed25519.PublicKey, data, signature []byte) bool

	// VerifyBase64 verifies a base64-encoded signature
	VerifyBase64(publicKeyB64, signatureB64 string, data []byte) (bool, error)
}

// Provider is the crypto-provider contract TreeSync consumes (spec §6.2):
// key-pair and path-secret derivation for the HPKE tree schedule, a
// collision-resistant hash for parent-hash and tree-hash computation, and
// signing for the leaf's credential. It is the only boundary between the
// pure, synchronous binarytree/treesync packages and real key material.
type Provider interface {
	// DeriveKeyPair derives an HPKE key pair from a path secret.
	DeriveKeyPair(pathSecret []byte) (publicKey, privateKey []byte, err error)

	// DerivePathSecret derives the next path secret in the chain from the
	// previous one via a KDF step.
	DerivePathSecret(previous []byte) (next []byte, err error)

	// Hash returns a collision-resistant digest of data.
	Hash(data []byte) []byte

	// Sign signs payload with the given credential's private signing key.
	Sign(payload []byte, privateKey ed25519.PrivateKey) ([]byte, error)

	// ComputeParentHash binds a node to its parent's prior parent-hash and
	// the (unmerged-leaf-filtered) resolution of its sibling subtree.
	ComputeParentHash(previousParentHash []byte, originalSiblingResolution [][]byte) []byte

	// ComputeTreeHash folds a node's own contribution (leaf index, when the
	// node is a leaf) with its children's tree hashes. leafIndex is nil for
	// internal nodes.
	ComputeTreeHash(leafIndex *uint32, nodeIndex uint32, left, right []byte) []byte
}
