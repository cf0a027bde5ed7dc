// ABOUTME: BadgerDB-backed descriptor store for export session restoration.
// ABOUTME: Default local backend; values use the shared descriptor codec.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/healthexport/internal/export"
)

// BadgerStore persists export descriptors in a local BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens or creates a BadgerDB at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// OpenInMemoryBadgerStore opens a BadgerDB that never touches disk.
func OpenInMemoryBadgerStore() (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Load returns nil, nil when key is absent.
func (s *BadgerStore) Load(_ context.Context, key string) (*export.Descriptor, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	return export.DecodeDescriptor(raw)
}

// Store writes d under key.
func (s *BadgerStore) Store(ctx context.Context, key string, d export.Descriptor) error {
	raw, err := export.EncodeDescriptor(d)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Keys lists every descriptor key.
func (s *BadgerStore) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(export.KeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list keys: %w", err)
	}
	return keys, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
