// Package storage implements the versioned, labelled key-value provider
// spec §5/§6 describe: every entity is addressed by a Label, an
// application-chosen sub-key, and a schema version, composed into one
// physical key. Grounded on original_source/storage-kv/src/lib.rs's
// KvStoreStorage and memory_keystore/src/lib.rs's write/read/append/
// read_list quartet, reimplemented with Go generics instead of Rust's
// trait-bound serialize/deserialize.
package storage

import (
	"encoding/json"
	"fmt"
)

// KVBackend is the raw byte-oriented store a Provider sits on top of.
// Get's second return value is false, with a nil error, for a missing key
// — no backend implementation may panic on a miss (spec's O3).
type KVBackend interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Provider is the versioned, labelled façade every TreeSync entity is
// stored and loaded through.
type Provider struct {
	backend KVBackend
}

// NewProvider wraps a raw KVBackend in the labelled, versioned façade.
func NewProvider(backend KVBackend) *Provider {
	return &Provider{backend: backend}
}

// Write serializes value as JSON and stores it under (label, subKey,
// version).
func Write[V any](p *Provider, label Label, subKey any, version uint16, value V) error {
	key, err := storageKey(label, subKey, version)
	if err != nil {
		return opErr("write", label, version, err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return opErr("write", label, version, fmt.Errorf("%w: %v", ErrSerialization, err))
	}
	if err := p.backend.Set(key, data); err != nil {
		return opErr("write", label, version, err)
	}
	return nil
}

// Read loads and deserializes the value stored under (label, subKey,
// version). Per O3, a missing key returns the zero value, found=false, and
// a nil error — it never panics the way original_source's read_list does
// for a missing key.
func Read[V any](p *Provider, label Label, subKey any, version uint16) (value V, found bool, err error) {
	key, err := storageKey(label, subKey, version)
	if err != nil {
		return value, false, opErr("read", label, version, err)
	}
	data, ok, err := p.backend.Get(key)
	if err != nil {
		return value, false, opErr("read", label, version, err)
	}
	if !ok {
		return value, false, nil
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, opErr("read", label, version, fmt.Errorf("%w: %v", ErrSerialization, err))
	}
	return value, true, nil
}

// Delete removes the value stored under (label, subKey, version), if any.
func Delete(p *Provider, label Label, subKey any, version uint16) error {
	key, err := storageKey(label, subKey, version)
	if err != nil {
		return opErr("delete", label, version, err)
	}
	if err := p.backend.Delete(key); err != nil {
		return opErr("delete", label, version, err)
	}
	return nil
}

// Append reads the list stored under (label, subKey, version), appends
// value, and writes the result back. Per O4, this is a plain
// read-modify-write: two backend round trips with no transactional
// isolation between them, matching storage-kv's apply_update for
// QueueProposal, which writes the updated ref list and the proposal body
// as two independent, non-atomic inserts.
func Append[V any](p *Provider, label Label, subKey any, version uint16, value V) error {
	list, err := ReadList[V](p, label, subKey, version)
	if err != nil {
		return err
	}
	list = append(list, value)
	return Write(p, label, subKey, version, list)
}

// ReadList loads the list stored under (label, subKey, version), returning
// an empty (not nil-panicking) slice if nothing has been written yet.
func ReadList[V any](p *Provider, label Label, subKey any, version uint16) ([]V, error) {
	list, found, err := Read[[]V](p, label, subKey, version)
	if err != nil {
		return nil, err
	}
	if !found {
		return []V{}, nil
	}
	return list, nil
}

// Migrate copies whatever raw bytes are stored under (label, subKey, from)
// to (label, subKey, to), leaving the source entry untouched, and is a
// no-op if nothing is stored at the source version. It lets a caller
// upgrade one entity's on-disk schema version without needing to know the
// entity's Go type, since it operates on the undecoded bytes.
func Migrate(p *Provider, label Label, subKey any, from, to uint16) error {
	fromKey, err := storageKey(label, subKey, from)
	if err != nil {
		return opErr("migrate", label, from, err)
	}
	data, ok, err := p.backend.Get(fromKey)
	if err != nil {
		return opErr("migrate", label, from, err)
	}
	if !ok {
		return nil
	}
	toKey, err := storageKey(label, subKey, to)
	if err != nil {
		return opErr("migrate", label, to, err)
	}
	if err := p.backend.Set(toKey, data); err != nil {
		return opErr("migrate", label, to, err)
	}
	return nil
}
