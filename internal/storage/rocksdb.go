//go:build rocksdb

package storage

import (
	"sync"

	"github.com/linxGnu/grocksdb"
)

// RocksDBBackend is a KVBackend over a single RocksDB column family,
// grounded on ParichayaHQ-credence's internal/store/rocksdb.go — same
// build-tag gating, same default-options-plus-block-cache setup — adapted
// down from that file's six purpose-built column families to the single
// flat keyspace storage.Provider's label‖subKey‖version composition
// already namespaces on its own.
type RocksDBBackend struct {
	mu        sync.RWMutex
	db        *grocksdb.DB
	opts      *grocksdb.Options
	readOpts  *grocksdb.ReadOptions
	writeOpts *grocksdb.WriteOptions
	closed    bool
}

// RocksDBConfig configures the on-disk RocksDB backend.
type RocksDBConfig struct {
	Path           string
	SyncWrites     bool
	BlockCacheMB   uint64
	MaxOpenFiles   int
}

// NewRocksDBBackend opens (or creates) a RocksDB database at cfg.Path.
func NewRocksDBBackend(cfg RocksDBConfig) (*RocksDBBackend, error) {
	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	if cfg.MaxOpenFiles > 0 {
		opts.SetMaxOpenFiles(cfg.MaxOpenFiles)
	}

	blockCacheMB := cfg.BlockCacheMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	blockCache := grocksdb.NewLRUCache(blockCacheMB * 1024 * 1024)
	blockOpts := grocksdb.NewDefaultBlockBasedTableOptions()
	blockOpts.SetBlockCache(blockCache)
	opts.SetBlockBasedTableFactory(blockOpts)

	db, err := grocksdb.OpenDb(opts, cfg.Path)
	if err != nil {
		return nil, opErr("rocksdb_open", "", 0, err)
	}

	readOpts := grocksdb.NewDefaultReadOptions()
	writeOpts := grocksdb.NewDefaultWriteOptions()
	writeOpts.SetSync(cfg.SyncWrites)

	return &RocksDBBackend{
		db:        db,
		opts:      opts,
		readOpts:  readOpts,
		writeOpts: writeOpts,
	}, nil
}

// Get implements KVBackend.
func (b *RocksDBBackend) Get(key []byte) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false, ErrClosed
	}
	value, err := b.db.Get(b.readOpts, key)
	if err != nil {
		return nil, false, opErr("rocksdb_get", "", 0, err)
	}
	defer value.Free()
	if !value.Exists() {
		return nil, false, nil
	}
	out := make([]byte, len(value.Data()))
	copy(out, value.Data())
	return out, true, nil
}

// Set implements KVBackend.
func (b *RocksDBBackend) Set(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.db.Put(b.writeOpts, key, value); err != nil {
		return opErr("rocksdb_put", "", 0, err)
	}
	return nil
}

// Delete implements KVBackend.
func (b *RocksDBBackend) Delete(key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.db.Delete(b.writeOpts, key); err != nil {
		return opErr("rocksdb_delete", "", 0, err)
	}
	return nil
}

// Close releases the underlying RocksDB handles.
func (b *RocksDBBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.readOpts.Destroy()
	b.writeOpts.Destroy()
	b.opts.Destroy()
	b.db.Close()
	b.closed = true
	return nil
}
