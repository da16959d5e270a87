package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/cloudflare/circl/hpke"
	"golang.org/x/crypto/hkdf"
)

// pathSecretLabel domain-separates the HKDF-Expand step used to walk the
// path-secret chain from leaf_secret up through each direct-path level, so
// that path-secret derivation can never collide with any other HKDF use in
// this package.
var pathSecretLabel = []byte("treesync path secret")

// hpkeKEM is the HPKE KEM used to turn a path secret into an HPKE key
// pair for a direct-path node. X25519-HKDF-SHA256 is circl's lightest
// KEM and the one openmls itself defaults to for its base ciphersuite.
var hpkeKEM = hpke.KEM_X25519_HKDF_SHA256

// HPKEProvider is the concrete Provider implementation: HPKE (via circl)
// for path-secret-derived key pairs, HKDF (via golang.org/x/crypto/hkdf)
// for path-secret chaining, SHA-256 for hashing, and Ed25519 for signing.
type HPKEProvider struct{}

// NewHPKEProvider returns the default crypto provider.
func NewHPKEProvider() *HPKEProvider {
	return &HPKEProvider{}
}

// DeriveKeyPair implements Provider.
func (p *HPKEProvider) DeriveKeyPair(pathSecret []byte) ([]byte, []byte, error) {
	if len(pathSecret) == 0 {
		return nil, nil, ErrEmptyPathSecret
	}
	scheme := hpkeKEM.Scheme()
	seed := make([]byte, scheme.SeedSize())
	if err := expand(pathSecret, []byte("treesync hpke key"), seed); err != nil {
		return nil, nil, fmt.Errorf("derive key pair: %w", err)
	}
	pub, priv := scheme.DeriveKeyPair(seed)
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal hpke public key: %w", err)
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal hpke private key: %w", err)
	}
	return pubBytes, privBytes, nil
}

// DerivePathSecret implements Provider.
func (p *HPKEProvider) DerivePathSecret(previous []byte) ([]byte, error) {
	if len(previous) == 0 {
		return nil, ErrEmptyPathSecret
	}
	next := make([]byte, sha256.Size)
	if err := expand(previous, pathSecretLabel, next); err != nil {
		return nil, fmt.Errorf("derive path secret: %w", err)
	}
	return next, nil
}

// Hash implements Provider.
func (p *HPKEProvider) Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// Sign implements Provider. It routes through Ed25519Signer/Ed25519KeyPair
// rather than calling ed25519.Sign directly, so this provider and the
// credential-facing Signer/Verifier pair share one signing path.
func (p *HPKEProvider) Sign(payload []byte, privateKey ed25519.PrivateKey) ([]byte, error) {
	keyPair, err := NewEd25519KeyPairFromPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", ErrInvalidPrivateKey)
	}
	return NewEd25519Signer(keyPair).Sign(payload)
}

// ComputeParentHash implements Provider. It binds the previous parent-hash
// and the filtered sibling resolution with length-prefixed fields so the
// encoding is injective over the resolution's element boundaries.
func (p *HPKEProvider) ComputeParentHash(previousParentHash []byte, resolution [][]byte) []byte {
	h := sha256.New()
	h.Write([]byte("treesync parent hash"))
	writeLenPrefixed(h, previousParentHash)
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(resolution)))
	h.Write(countBuf[:])
	for _, pk := range resolution {
		writeLenPrefixed(h, pk)
	}
	return h.Sum(nil)
}

// ComputeTreeHash implements Provider.
func (p *HPKEProvider) ComputeTreeHash(leafIndex *uint32, nodeIndex uint32, left, right []byte) []byte {
	h := sha256.New()
	var nodeBuf [4]byte
	binary.BigEndian.PutUint32(nodeBuf[:], nodeIndex)
	if leafIndex != nil {
		h.Write([]byte("treesync leaf hash"))
		var leafBuf [4]byte
		binary.BigEndian.PutUint32(leafBuf[:], *leafIndex)
		h.Write(leafBuf[:])
	} else {
		h.Write([]byte("treesync parent node hash"))
		h.Write(nodeBuf[:])
		writeLenPrefixed(h, left)
		writeLenPrefixed(h, right)
	}
	return h.Sum(nil)
}

func writeLenPrefixed(h interface{ Write([]byte) (int, error) }, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	h.Write(lenBuf[:])
	h.Write(data)
}

// expand runs HKDF-Expand keyed by secret, writing len(out) bytes of
// output derived under the given label.
func expand(secret, label []byte, out []byte) error {
	reader := hkdf.Expand(sha256.New, secret, label)
	_, err := reader.Read(out)
	return err
}
