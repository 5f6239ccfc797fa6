// Package storage provides the on-device key-value persistence used by the
// favorites and theme stores.
//
// An Engine is the raw string key-value contract of the underlying database.
// Storage wraps an Engine with JSON encoding and swallows failures at the
// boundary: reads degrade to "absent", writes are logged and reported as a
// result value, never panicked or propagated into store mutations.
package storage

// Engine defines the raw key-value operations of a storage backend.
type Engine interface {
	// GetString returns the stored value and whether the key exists
	GetString(key string) (string, bool, error)
	// SetString stores value under key, replacing any previous value
	SetString(key, value string) error
	// Delete removes key. Deleting a missing key is not an error
	Delete(key string) error
	// Contains reports whether key exists
	Contains(key string) (bool, error)
	// Close releases the backend
	Close() error
}
