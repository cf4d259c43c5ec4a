package storage

import (
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

// DBFile is the name of the database file inside the data directory
const DBFile = "scheduler.db"

// BoltStore implements Backend using BoltDB, one bucket per namespace
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Keys lists the keys of a namespace. A namespace that was never written is empty.
func (s *BoltStore) Keys(namespace string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (s *BoltStore) Get(namespace, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		// Make a copy since BoltDB data is only valid during the transaction
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return data, data != nil, nil
}

func (s *BoltStore) Put(namespace, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", namespace, err)
		}
		return b.Put([]byte(key), value)
	})
}

func (s *BoltStore) Delete(namespace, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Dump copies the whole store, namespace by namespace
func (s *BoltStore) Dump() (map[string]map[string][]byte, error) {
	dump := make(map[string]map[string][]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			entries := make(map[string][]byte)
			if err := b.ForEach(func(k, v []byte) error {
				value := make([]byte, len(v))
				copy(value, v)
				entries[string(k)] = value
				return nil
			}); err != nil {
				return err
			}
			dump[string(name)] = entries
			return nil
		})
	})
	return dump, err
}

// Load replaces the whole store with dump in a single transaction
func (s *BoltStore) Load(dump map[string]map[string][]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var existing [][]byte
		if err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			existing = append(existing, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}
		for _, name := range existing {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("failed to drop bucket %s: %w", name, err)
			}
		}

		for namespace, entries := range dump {
			b, err := tx.CreateBucket([]byte(namespace))
			if err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", namespace, err)
			}
			for k, v := range entries {
				if err := b.Put([]byte(k), v); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
