// Package dbtest holds the behaviour every db.KVStore backend must share.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/raffle/pkg/db"
)

// Run exercises a backend. newStore must return an empty, open store.
func Run(t *testing.T, newStore func(t *testing.T) db.KVStore) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{name: "basic_put_get", fn: testBasicPutGet},
		{name: "overwrite", fn: testOverwrite},
		{name: "batch_commit", fn: testBatchCommit},
		{name: "batch_after_commit", fn: testBatchAfterCommit},
		{name: "batch_discarded", fn: testBatchDiscarded},
		{name: "store_closure", fn: testStoreClosure},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close() //nolint:errcheck

			tc.fn(t, store)
		})
	}
}

// Put writes a single key through a one-entry batch.
func Put(t *testing.T, store db.KVStore, key, value []byte) {
	t.Helper()
	batch := store.NewBatch()
	defer batch.Close() //nolint:errcheck
	require.NoError(t, batch.Put(key, value))
	require.NoError(t, batch.Commit())
}

func testBasicPutGet(t *testing.T, store db.KVStore) {
	key := []byte("round")
	value := []byte("open")

	Put(t, store, key, value)

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	_, err = store.Get([]byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testOverwrite(t *testing.T, store db.KVStore) {
	key := []byte("round")
	Put(t, store, key, []byte("open"))
	Put(t, store, key, []byte("calculating"))

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("calculating"), retrieved)
}

func testBatchCommit(t *testing.T, store db.KVStore) {
	Put(t, store, []byte("key2"), []byte("old"))

	batch := store.NewBatch()
	defer batch.Close() //nolint:errcheck

	require.NoError(t, batch.Put([]byte("key1"), []byte("value1")))
	require.NoError(t, batch.Put([]byte("key2"), []byte("new")))

	// Nothing is visible before commit
	_, err := store.Get([]byte("key1"))
	assert.ErrorIs(t, err, db.ErrNotFound)
	val, err := store.Get([]byte("key2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), val)

	require.NoError(t, batch.Commit())

	val, err = store.Get([]byte("key1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), val)

	val, err = store.Get([]byte("key2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), val)
}

func testBatchAfterCommit(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("k"), []byte("v")))
	require.NoError(t, batch.Commit())

	assert.ErrorIs(t, batch.Put([]byte("k2"), []byte("v2")), db.ErrBatchDone)
	assert.ErrorIs(t, batch.Commit(), db.ErrBatchDone)
	assert.NoError(t, batch.Close())
}

func testBatchDiscarded(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("k"), []byte("v")))
	require.NoError(t, batch.Close())

	_, err := store.Get([]byte("k"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testStoreClosure(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Close())

	_, err := store.Get([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	// Double close should not error
	assert.NoError(t, store.Close())
}
