package persistence

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltBackend stores each key's records in its own bucket, keyed by a big-endian sequence number.
type BoltBackend struct {
	db *bolt.DB
}

// NewBoltBackend opens or creates the database file at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %q: %w", path, err)
	}
	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) Load(_ context.Context, key string) ([][]byte, error) {
	var result [][]byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(key))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			result = append(result, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return result, nil
}

func (b *BoltBackend) Append(_ context.Context, key string, record []byte) (int, error) {
	var count int
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return err
		}
		if err := putNext(bucket, record); err != nil {
			return err
		}
		// Records are only removed by Replace, which recreates the bucket, so the sequence is the record count.
		count = int(bucket.Sequence())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append to %q: %w", key, err)
	}
	return count, nil
}

func (b *BoltBackend) Replace(_ context.Context, key string, record []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(key)) != nil {
			if err := tx.DeleteBucket([]byte(key)); err != nil {
				return err
			}
		}
		bucket, err := tx.CreateBucket([]byte(key))
		if err != nil {
			return err
		}
		return putNext(bucket, record)
	})
	if err != nil {
		return fmt.Errorf("replace %q: %w", key, err)
	}
	return nil
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}

func putNext(bucket *bolt.Bucket, record []byte) error {
	seq, err := bucket.NextSequence()
	if err != nil {
		return err
	}
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return bucket.Put(k, record)
}
