package raffle

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/state"
)

func (m *Machine) EntranceFee() decimal.Decimal {
	return m.cfg.EntranceFee
}

func (m *Machine) Interval() time.Duration {
	return m.cfg.Interval
}

func (m *Machine) NumWords() uint32 {
	return m.cfg.Request.NumWords
}

func (m *Machine) RequestConfirmations() uint16 {
	return m.cfg.Request.RequestConfirmations
}

func (m *Machine) Status() state.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.Status
}

func (m *Machine) NumEntrants() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.Ledger.Len()
}

func (m *Machine) EntrantAt(index int) (crypto.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.Ledger.EntrantAt(index)
}

func (m *Machine) Pool() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.Ledger.Pool()
}

// RecentWinner is the zero address until the first payout.
func (m *Machine) RecentWinner() crypto.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.RecentWinner
}

func (m *Machine) StartedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.Clock.StartedAt
}

// Snapshot returns a copy of the whole round taken under one lock.
func (m *Machine) Snapshot() *state.Round {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.Clone()
}
