package store

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/pkg/db"
	"github.com/eigerco/raffle/pkg/log"
	"github.com/eigerco/raffle/pkg/serialization"
)

var (
	ErrRoundNotFound = errors.New("round not found")
	ErrStoreClosed   = errors.New("round store is closed")
)

const (
	prefixRound byte = iota + 1
	prefixMeta
)

var (
	roundKey       = []byte{prefixRound}
	entranceFeeKey = []byte{prefixMeta, 'f', 'e', 'e'}
)

// Rounds persists the single active round record.
type Rounds struct {
	db         db.KVStore
	serializer *serialization.Serializer
	closed     atomic.Bool
}

// NewRounds creates a round store on top of kv.
func NewRounds(kv db.KVStore) *Rounds {
	return &Rounds{db: kv, serializer: serialization.NewSCALE()}
}

// PutRound replaces the stored round together with the entrance fee it was
// collected at.
func (s *Rounds) PutRound(entranceFee string, rec state.Record) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	b, err := s.serializer.Encode(rec)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer func() {
		if err := batch.Close(); err != nil {
			log.Store.Warn().Err(err).Msg("close batch")
		}
	}()

	if err := batch.Put(roundKey, b); err != nil {
		return fmt.Errorf("store round: %w", err)
	}
	if err := batch.Put(entranceFeeKey, []byte(entranceFee)); err != nil {
		return fmt.Errorf("store entrance fee: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// GetRound returns the stored round and the entrance fee it was stored with.
func (s *Rounds) GetRound() (string, state.Record, error) {
	if s.closed.Load() {
		return "", state.Record{}, ErrStoreClosed
	}

	b, err := s.db.Get(roundKey)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", state.Record{}, ErrRoundNotFound
		}
		return "", state.Record{}, fmt.Errorf("get round: %w", err)
	}
	var rec state.Record
	if err := s.serializer.Decode(b, &rec); err != nil {
		return "", state.Record{}, err
	}

	fee, err := s.db.Get(entranceFeeKey)
	if err != nil {
		return "", state.Record{}, fmt.Errorf("get entrance fee: %w", err)
	}
	return string(fee), rec, nil
}

// Close closes the store and the underlying kv store.
func (s *Rounds) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
