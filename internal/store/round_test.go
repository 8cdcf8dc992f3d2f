package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/pkg/db"
	"github.com/eigerco/raffle/pkg/db/bolt"
	"github.com/eigerco/raffle/pkg/db/pebble"
)

func newStore(t *testing.T) *Rounds {
	t.Helper()
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	return NewRounds(kv)
}

func testRecord() state.Record {
	return state.Record{
		Status:       uint8(state.StatusCalculating),
		StartedAt:    1709251200000000000,
		Entrants:     []crypto.Address{{1}, {2}, {1}},
		Pool:         "0.03",
		HasPending:   true,
		PendingID:    4,
		RecentWinner: crypto.Address{9},
	}
}

func Test_PutGetRound(t *testing.T) {
	rounds := newStore(t)
	defer rounds.Close() //nolint:errcheck

	require.NoError(t, rounds.PutRound("0.01", testRecord()))

	fee, rec, err := rounds.GetRound()
	require.NoError(t, err)
	require.Equal(t, "0.01", fee)
	require.Equal(t, testRecord(), rec)
}

func Test_PutRoundOverwrites(t *testing.T) {
	rounds := newStore(t)
	defer rounds.Close() //nolint:errcheck

	require.NoError(t, rounds.PutRound("0.01", testRecord()))

	open := state.Record{Status: uint8(state.StatusOpen), Pool: "0"}
	require.NoError(t, rounds.PutRound("0.01", open))

	_, rec, err := rounds.GetRound()
	require.NoError(t, err)
	require.Equal(t, open, rec)
}

func Test_GetRoundNotFound(t *testing.T) {
	rounds := newStore(t)
	defer rounds.Close() //nolint:errcheck

	_, _, err := rounds.GetRound()
	require.ErrorIs(t, err, ErrRoundNotFound)
}

func Test_Close(t *testing.T) {
	rounds := newStore(t)
	require.NoError(t, rounds.Close())
	// Closing a closed store should have no effect/error
	require.NoError(t, rounds.Close())

	_, _, err := rounds.GetRound()
	require.ErrorIs(t, err, ErrStoreClosed)
	require.ErrorIs(t, rounds.PutRound("1", testRecord()), ErrStoreClosed)
}

func Test_BoltBackend(t *testing.T) {
	kv, err := bolt.Open(t.TempDir() + "/raffle.bolt")
	require.NoError(t, err)
	var _ db.KVStore = kv

	rounds := NewRounds(kv)
	defer rounds.Close() //nolint:errcheck

	require.NoError(t, rounds.PutRound("0.01", testRecord()))
	_, rec, err := rounds.GetRound()
	require.NoError(t, err)
	require.Equal(t, testRecord(), rec)
}
