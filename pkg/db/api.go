package db

// KVStore is the key-value storage the node persists its round record into.
// Implementations must be safe for concurrent use.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	NewBatch() Batch
	Close() error
}

// Batch groups writes that are applied atomically on Commit.
type Batch interface {
	Put(key []byte, value []byte) error
	Commit() error
	Close() error
}
