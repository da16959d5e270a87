//go:build !rocksdb

package storage

import "fmt"

// RocksDBConfig configures the on-disk RocksDB backend. Defined here too so
// callers can reference the type regardless of build tags.
type RocksDBConfig struct {
	Path         string
	SyncWrites   bool
	BlockCacheMB uint64
	MaxOpenFiles int
}

// RocksDBBackend stub for builds without the "rocksdb" build tag, mirroring
// ParichayaHQ-credence's internal/store/rocksdb_stub.go.
type RocksDBBackend struct{}

// NewRocksDBBackend always fails without the "rocksdb" build tag.
func NewRocksDBBackend(cfg RocksDBConfig) (*RocksDBBackend, error) {
	return nil, fmt.Errorf("storage: RocksDB support not compiled in - build with -tags rocksdb to enable")
}

func (b *RocksDBBackend) Get(key []byte) ([]byte, bool, error) {
	return nil, false, fmt.Errorf("storage: RocksDB not available")
}

func (b *RocksDBBackend) Set(key, value []byte) error {
	return fmt.Errorf("storage: RocksDB not available")
}

func (b *RocksDBBackend) Delete(key []byte) error {
	return fmt.Errorf("storage: RocksDB not available")
}

func (b *RocksDBBackend) Close() error {
	return nil
}
