package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// Default database file permissions
	dbFileMode = 0600
	dbDirMode  = 0755

	// Default database filename
	defaultDBFile = "movieshelf.db"

	// Single bucket holding every key
	defaultBucket = "kv"

	// How long to wait for the file lock held by another process
	openTimeout = 1 * time.Second
)

// BoltEngine implements Engine on a single bbolt bucket.
type BoltEngine struct {
	db     *bolt.DB
	bucket []byte
}

// NewBolt opens (or creates) a bbolt database at dbPath.
// If dbPath is empty, uses the default database file in current directory.
func NewBolt(dbPath string) (*BoltEngine, error) {
	if dbPath == "" {
		dbPath = filepath.Join(".", defaultDBFile)
	}

	// Ensure database directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, dbDirMode); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, dbFileMode, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	e := &BoltEngine{db: db, bucket: []byte(defaultBucket)}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(e.bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return e, nil
}

// Close closes the database file.
func (e *BoltEngine) Close() error {
	return e.db.Close()
}

// GetString returns a copy of the value stored under key.
func (e *BoltEngine) GetString(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := e.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(e.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		// v is only valid inside the transaction
		value, found = string(v), true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, found, nil
}

// SetString stores value under key.
func (e *BoltEngine) SetString(key, value string) error {
	err := e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(e.bucket).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Returns nil if the key doesn't exist.
func (e *BoltEngine) Delete(key string) error {
	err := e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(e.bucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Contains reports whether key exists.
func (e *BoltEngine) Contains(key string) (bool, error) {
	_, found, err := e.GetString(key)
	return found, err
}
