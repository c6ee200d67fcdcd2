// Package bolt provides a single-file embedded storage.Backend on top of BoltDB.
package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"token-ledger/internal/storage"
)

// stateBucket holds every ledger key.
var stateBucket = []byte("ledger_state")

// KVStore is a BoltDB implementation of storage.Backend.
type KVStore struct {
	db *bolt.DB
}

// Open opens (or creates) the database file at path.
func Open(path string) (*KVStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &KVStore{db: db}, nil
}

// Close releases the database file lock.
func (s *KVStore) Close() error {
	return s.db.Close()
}

// Compile-time interface check.
var _ storage.Backend = (*KVStore)(nil)

// Get returns a copy of the value stored under key, or (nil, nil) if absent.
func (s *KVStore) Get(_ context.Context, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, storage.ErrInvalidInput
	}

	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(stateBucket).Get(key)
		if v != nil {
			// bolt values are only valid for the life of the tx
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	return value, nil
}

// WriteBatch applies all writes in a single bolt transaction.
func (s *KVStore) WriteBatch(_ context.Context, writes []storage.Write) error {
	if len(writes) == 0 {
		return nil
	}
	for _, w := range writes {
		if len(w.Key) == 0 {
			return storage.ErrInvalidInput
		}
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		for _, w := range writes {
			if w.Delete {
				if err := b.Delete(w.Key); err != nil {
					return err
				}
				continue
			}
			value := w.Value
			if value == nil {
				value = []byte{}
			}
			if err := b.Put(w.Key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}
