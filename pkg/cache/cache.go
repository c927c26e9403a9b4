// Package cache provides a content-addressed store for analysis payloads.
// Re-running the analyzer over an unchanged dialogue hits the cache instead of
// re-billing a provider, which also keeps repeated runs byte-identical.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a key is not present in the cache.
var ErrNotFound = errors.New("key not found in cache")

// Cache is the storage interface used by the analyzer.
type Cache interface {
	// Get retrieves a stored payload.
	Get(key string) ([]byte, error)
	// Put stores a payload under key with a TTL.
	Put(key string, value []byte, ttl time.Duration) error
	// Close releases the underlying store.
	Close() error
}

// Key derives a stable cache key from its parts.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BadgerCache implements Cache on BadgerDB.
type BadgerCache struct {
	db *badger.DB
}

// NewBadgerCache opens (or creates) a BadgerDB-backed cache at path.
func NewBadgerCache(path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logging is noise here

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerCache{db: db}, nil
}

// Get retrieves a stored payload.
func (c *BadgerCache) Get(key string) ([]byte, error) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return val, nil
}

// Put stores a payload under key with a TTL.
func (c *BadgerCache) Put(key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// Close releases the underlying store.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
