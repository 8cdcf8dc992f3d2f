// Package ledger keeps the entrants and the pool of the current round.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/crypto"
)

// Ledger is not safe for concurrent use; the round state machine serializes
// access to it.
type Ledger struct {
	entranceFee decimal.Decimal
	entrants    []crypto.Address
	pool        decimal.Decimal
}

// New returns an empty ledger that admits entries paying at least entranceFee.
func New(entranceFee decimal.Decimal) (*Ledger, error) {
	if entranceFee.IsNegative() {
		return nil, ErrNegativeFee
	}
	return &Ledger{entranceFee: entranceFee, pool: decimal.Zero}, nil
}

// Restore rebuilds a ledger from persisted entrants and pool.
func Restore(entranceFee decimal.Decimal, entrants []crypto.Address, pool decimal.Decimal) (*Ledger, error) {
	l, err := New(entranceFee)
	if err != nil {
		return nil, err
	}
	l.entrants = append([]crypto.Address(nil), entrants...)
	l.pool = pool
	return l, nil
}

// AddEntrant records one paid entry. The same id may enter many times.
func (l *Ledger) AddEntrant(id crypto.Address, feePaid decimal.Decimal) error {
	if feePaid.LessThan(l.entranceFee) {
		return fmt.Errorf("%w: paid %s, need %s", ErrInsufficientFee, feePaid, l.entranceFee)
	}
	l.entrants = append(l.entrants, id)
	l.pool = l.pool.Add(feePaid)
	return nil
}

// Reset drops all entrants and zeroes the pool. The entrance fee is kept.
func (l *Ledger) Reset() {
	l.entrants = nil
	l.pool = decimal.Zero
}

// EntrantAt returns the entrant at index, counting from 0 in entry order.
func (l *Ledger) EntrantAt(index int) (crypto.Address, error) {
	if index < 0 || index >= len(l.entrants) {
		return crypto.Address{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(l.entrants))
	}
	return l.entrants[index], nil
}

// Entrants returns a copy in entry order.
func (l *Ledger) Entrants() []crypto.Address {
	return append([]crypto.Address(nil), l.entrants...)
}

// Len returns the number of entries, counting repeat entries separately.
func (l *Ledger) Len() int {
	return len(l.entrants)
}

// Pool returns the sum of the fees paid into the current round.
func (l *Ledger) Pool() decimal.Decimal {
	return l.pool
}

// EntranceFee returns the minimum fee an entry must pay.
func (l *Ledger) EntranceFee() decimal.Decimal {
	return l.entranceFee
}

// Clone returns an independent copy.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{
		entranceFee: l.entranceFee,
		entrants:    l.Entrants(),
		pool:        l.pool,
	}
}
