package storage

import "sync"

// MemoryBackend is a process-local KVBackend guarded by a single
// reader-preferring sync.RWMutex, grounded on
// original_source/memory_keystore/src/lib.rs's MemoryKeyStore
// (RwLock<HashMap<Vec<u8>, Vec<u8>>>) and on rickcollette-kayveedb's
// lib/kayveedb.go, which guards its BTree the same way. There is no
// cross-key atomicity: two Provider calls touching different keys can
// interleave arbitrarily, matching both reference implementations.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// Get implements KVBackend.
func (m *MemoryBackend) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set implements KVBackend.
func (m *MemoryBackend) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

// Delete implements KVBackend.
func (m *MemoryBackend) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// Len reports the number of keys currently stored, mainly useful in tests.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
