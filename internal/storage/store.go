package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a small key/value area. Values are opaque bytes.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Take returns the value under key and removes it in one step.
	// At most one concurrent caller observes a given value.
	Take(ctx context.Context, key string) ([]byte, error)
}

// Watcher is implemented by stores that can signal writes to a key.
// The returned channel receives a value after each Set of key and is
// closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
}

// validateKey rejects keys that could escape a file backend's directory.
func validateKey(key string) error {
	if key == "" {
		return errors.New("storage: empty key")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." || strings.HasPrefix(key, ".") {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}
