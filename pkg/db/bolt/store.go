// Package bolt provides a db.KVStore on top of a single bbolt bucket.
package bolt

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/eigerco/raffle/pkg/db"
)

var bucketName = []byte("raffle")

// KVStore is a db.KVStore backed by bbolt.
type KVStore struct {
	db     *bolt.DB
	closed bool
	mu     sync.RWMutex
}

// Open opens, or creates, the bolt file at path.
func Open(path string) (*KVStore, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt at %q: %w", path, err)
	}
	err = bdb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &KVStore{db: bdb}, nil
}

func (s *KVStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, db.ErrClosed
	}

	var result []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return db.ErrNotFound
		}
		// v is only valid for the life of the transaction
		result = make([]byte, len(v))
		copy(result, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type op struct {
	key, value []byte
}

// Batch buffers writes and applies them in one bolt transaction.
type Batch struct {
	store *KVStore
	ops   []op
	done  atomic.Bool
}

func (s *KVStore) NewBatch() db.Batch {
	return &Batch{store: s}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	b.ops = append(b.ops, op{key: bytes.Clone(key), value: bytes.Clone(value)})
	return nil
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	if b.store.closed {
		return db.ErrClosed
	}

	err := b.store.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		for _, o := range b.ops {
			if err := bucket.Put(o.key, o.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.done.Store(true)
	b.ops = nil
	return nil
}

func (b *Batch) Close() error {
	b.done.Store(true)
	b.ops = nil
	return nil
}

var _ db.KVStore = (*KVStore)(nil)
