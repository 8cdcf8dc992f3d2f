package state

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/ledger"
	"github.com/eigerco/raffle/internal/roundclock"
)

// Round is the single, reused unit of lottery execution.
type Round struct {
	Status       Status           // OPEN or CALCULATING
	Clock        roundclock.Clock // start of the current round
	Ledger       *ledger.Ledger   // entrants and pool of the current round
	Pending      *RequestID       // in-flight randomness request, nil when none
	RecentWinner crypto.Address   // winner of the last paid out round, zero before the first
}

// NewRound creates an open, empty round started at now.
func NewRound(entranceFee decimal.Decimal, now time.Time) (*Round, error) {
	l, err := ledger.New(entranceFee)
	if err != nil {
		return nil, err
	}
	return &Round{
		Status: StatusOpen,
		Clock:  roundclock.New(now),
		Ledger: l,
	}, nil
}

// Clone returns a deep copy.
func (r *Round) Clone() *Round {
	c := *r
	c.Ledger = r.Ledger.Clone()
	if r.Pending != nil {
		id := *r.Pending
		c.Pending = &id
	}
	return &c
}

// PendingID returns the in-flight request id, if any.
func (r *Round) PendingID() (RequestID, bool) {
	if r.Pending == nil {
		return 0, false
	}
	return *r.Pending, true
}

// Record is the stored form of a Round. Fields are fixed width so the SCALE
// encoding is stable.
type Record struct {
	Status       uint8
	StartedAt    int64 // unix nanoseconds
	Entrants     []crypto.Address
	Pool         string
	HasPending   bool
	PendingID    uint64
	RecentWinner crypto.Address
}

// ToRecord flattens the round for storage.
func (r *Round) ToRecord() Record {
	rec := Record{
		Status:       uint8(r.Status),
		StartedAt:    r.Clock.StartedAt.UnixNano(),
		Entrants:     r.Ledger.Entrants(),
		Pool:         r.Ledger.Pool().String(),
		RecentWinner: r.RecentWinner,
	}
	if id, ok := r.PendingID(); ok {
		rec.HasPending = true
		rec.PendingID = uint64(id)
	}
	return rec
}

// FromRecord rebuilds a round. The entrance fee is configuration, not state.
func FromRecord(entranceFee decimal.Decimal, rec Record) (*Round, error) {
	status := Status(rec.Status)
	if status != StatusOpen && status != StatusCalculating {
		return nil, fmt.Errorf("stored round has unknown status %d", rec.Status)
	}
	pool, err := decimal.NewFromString(rec.Pool)
	if err != nil {
		return nil, fmt.Errorf("stored pool %q: %w", rec.Pool, err)
	}
	l, err := ledger.Restore(entranceFee, rec.Entrants, pool)
	if err != nil {
		return nil, err
	}
	r := &Round{
		Status:       status,
		Clock:        roundclock.New(time.Unix(0, rec.StartedAt).UTC()),
		Ledger:       l,
		RecentWinner: rec.RecentWinner,
	}
	if rec.HasPending {
		if status != StatusCalculating {
			return nil, fmt.Errorf("stored round is %s with pending request %d", status, rec.PendingID)
		}
		id := RequestID(rec.PendingID)
		r.Pending = &id
	}
	return r, nil
}
