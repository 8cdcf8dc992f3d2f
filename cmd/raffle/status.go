package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/config"
	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/internal/store"
	"github.com/eigerco/raffle/pkg/serialization"
)

// roundStatus is the JSON view printed by -status.
type roundStatus struct {
	EntranceFee    decimal.Decimal  `json:"entrance_fee"`
	Status         state.Status     `json:"status"`
	StartedAt      time.Time        `json:"started_at"`
	Entrants       []crypto.Address `json:"entrants"`
	Pool           decimal.Decimal  `json:"pool"`
	PendingRequest *uint64          `json:"pending_request,omitempty"`
	RecentWinner   *crypto.Address  `json:"recent_winner,omitempty"`
}

// renderStatus checks the stored round the same way a restarting node would
// and renders it as indented JSON.
func renderStatus(entranceFee string, rec state.Record) ([]byte, error) {
	fee, err := decimal.NewFromString(entranceFee)
	if err != nil {
		return nil, fmt.Errorf("stored entrance fee %q: %w", entranceFee, err)
	}
	r, err := state.FromRecord(fee, rec)
	if err != nil {
		return nil, err
	}

	view := roundStatus{
		EntranceFee: fee,
		Status:      r.Status,
		StartedAt:   r.Clock.StartedAt,
		Entrants:    r.Ledger.Entrants(),
		Pool:        r.Ledger.Pool(),
	}
	if view.Entrants == nil {
		view.Entrants = []crypto.Address{}
	}
	if id, ok := r.PendingID(); ok {
		raw := uint64(id)
		view.PendingRequest = &raw
	}
	if !r.RecentWinner.IsZero() {
		winner := r.RecentWinner
		view.RecentWinner = &winner
	}
	return serialization.NewJSON().Encode(view)
}

// printStatus dumps the round held in the configured store. The node owning
// the store must be stopped.
func printStatus(cfg config.Store) error {
	if cfg.Engine == config.EngineMemory {
		return errors.New("status needs a persistent store engine")
	}
	kv, err := openStore(cfg)
	if err != nil {
		return err
	}
	rounds := store.NewRounds(kv)
	defer rounds.Close() //nolint:errcheck

	fee, rec, err := rounds.GetRound()
	if err != nil {
		return err
	}
	out, err := renderStatus(fee, rec)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
