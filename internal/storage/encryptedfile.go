package storage

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptedFileBackend is an at-rest encrypted, single-file KVBackend: the
// whole key space is held in memory and persisted as one
// chacha20poly1305-sealed blob on every mutation. Grounded on
// rickcollette-kayveedb's lib/kayveedb.go, which layers the same AEAD over
// its on-disk pages, adapted here to a single flat blob since this
// package's storage volumes (one group's tree + a handful of proposals)
// never approach the scale kayveedb's paged B-tree is built for.
type EncryptedFileBackend struct {
	mu   sync.RWMutex
	path string
	aead cipher.AEAD
	data map[string][]byte
}

// NewEncryptedFileBackend opens (or initializes) an encrypted-file backend
// at path, using key as the chacha20poly1305 key. key must be exactly 32
// bytes.
func NewEncryptedFileBackend(path string, key []byte) (*EncryptedFileBackend, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("encrypted-file backend: %w", err)
	}
	b := &EncryptedFileBackend{path: path, aead: aead, data: make(map[string][]byte)}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *EncryptedFileBackend) load() error {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("encrypted-file backend: read: %w", err)
	}
	if len(raw) < b.aead.NonceSize() {
		return fmt.Errorf("encrypted-file backend: truncated file")
	}
	nonce, ciphertext := raw[:b.aead.NonceSize()], raw[b.aead.NonceSize():]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("encrypted-file backend: decrypt: %w", err)
	}
	var data map[string][]byte
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return fmt.Errorf("encrypted-file backend: decode: %w", err)
	}
	b.data = data
	return nil
}

func (b *EncryptedFileBackend) flushLocked() error {
	plaintext, err := json.Marshal(b.data)
	if err != nil {
		return fmt.Errorf("encrypted-file backend: encode: %w", err)
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("encrypted-file backend: nonce: %w", err)
	}
	ciphertext := b.aead.Seal(nil, nonce, plaintext, nil)
	out := append(nonce, ciphertext...)
	if err := os.WriteFile(b.path, out, 0o600); err != nil {
		return fmt.Errorf("encrypted-file backend: write: %w", err)
	}
	return nil
}

// Get implements KVBackend.
func (b *EncryptedFileBackend) Get(key []byte) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set implements KVBackend.
func (b *EncryptedFileBackend) Set(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	b.data[string(key)] = cp
	return b.flushLocked()
}

// Delete implements KVBackend.
func (b *EncryptedFileBackend) Delete(key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, string(key))
	return b.flushLocked()
}
