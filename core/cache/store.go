// Package cache persists opaque byte snapshots keyed by string. It backs the
// incremental co-change scan: callers read the previous snapshot, extend it
// and write it back. A single writer per key is assumed.
package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrInvalidKey     = errors.New("invalid cache key")
	ErrClosed         = errors.New("cache store is closed")
	ErrUnknownBackend = errors.New("unknown cache backend")
)

// =============================================================================
// Store
// =============================================================================

// Store is a key/value store for cache snapshots.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// DefaultMemoryEntries bounds the memory backend when opened through Open.
const DefaultMemoryEntries = 64

// Open creates the store for backend rooted at dir. dir is ignored by the
// memory backend.
func Open(backend Backend, dir string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(DefaultMemoryEntries)
	case BackendFile, "":
		return NewFileStore(dir)
	case BackendSQLite:
		return NewSQLiteStore(dir)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateKey checks that key is usable by every backend, including as a
// file name.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
