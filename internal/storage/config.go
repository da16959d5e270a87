package storage

import "github.com/go-playground/validator/v10"

// Config selects and configures a storage backend, grounded on
// ParichayaHQ-credence/internal/store.Config's json-tagged, validator-
// checked shape.
type Config struct {
	// Backend selects the KVBackend implementation: "memory" (the
	// default, process-local), "encrypted-file" (at-rest encrypted,
	// single-file), or "rocksdb" (persistent, requires the "rocksdb"
	// build tag).
	Backend string `json:"backend" validate:"required,oneof=memory encrypted-file rocksdb"`

	// Path is the encrypted-file or rocksdb backend's storage path;
	// unused for "memory".
	Path string `json:"path,omitempty" validate:"required_if=Backend encrypted-file,required_if=Backend rocksdb"`

	// EncryptionKey is the encrypted-file backend's 32-byte
	// chacha20poly1305 key, base64 or raw depending on how the caller
	// loads it; unused for "memory" and "rocksdb".
	EncryptionKey []byte `json:"-" validate:"required_if=Backend encrypted-file,omitempty,len=32"`

	// RocksDB holds rocksdb-specific tuning, unused for other backends.
	RocksDB RocksDBConfig `json:"rocksdb,omitempty"`
}

// DefaultConfig returns the zero-configuration default: an in-memory
// backend, suitable for tests and single-process use.
func DefaultConfig() Config {
	return Config{Backend: "memory"}
}

var validate = validator.New()

// Validate checks the config's invariants with go-playground/validator,
// the same library ParichayaHQ-credence uses for its own config and
// request validation.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// Build constructs the KVBackend this config describes.
func (c Config) Build() (KVBackend, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Backend {
	case "memory":
		return NewMemoryBackend(), nil
	case "encrypted-file":
		return NewEncryptedFileBackend(c.Path, c.EncryptionKey)
	case "rocksdb":
		rcfg := c.RocksDB
		rcfg.Path = c.Path
		return NewRocksDBBackend(rcfg)
	default:
		return nil, opErr("build", "", 0, ErrUnsupportedMethod)
	}
}
