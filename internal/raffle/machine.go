// Package raffle runs the round lifecycle: entries while OPEN, closing the
// round and requesting randomness, then paying the winner and reopening.
package raffle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/metrics"
	"github.com/eigerco/raffle/internal/payout"
	"github.com/eigerco/raffle/internal/randomness"
	"github.com/eigerco/raffle/internal/roundclock"
	"github.com/eigerco/raffle/internal/selection"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/internal/store"
	"github.com/eigerco/raffle/internal/upkeep"
	"github.com/eigerco/raffle/pkg/log"
)

// Config is fixed for the life of the machine.
type Config struct {
	EntranceFee decimal.Decimal
	Interval    time.Duration
	MinBalance  decimal.Decimal
	Request     randomness.RequestConfig
}

// RoundStore persists the active round.
type RoundStore interface {
	PutRound(entranceFee string, rec state.Record) error
	GetRound() (string, state.Record, error)
}

type Option func(*Machine)

// WithStore checkpoints the round after every committed transition.
func WithStore(s RoundStore) Option {
	return func(m *Machine) { m.store = s }
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// Machine owns the one active round. Writers are serialized; readers see a
// committed round only, because every write builds the next round on a copy
// and swaps it in once it is complete.
type Machine struct {
	mu       sync.RWMutex
	cfg      Config
	round    *state.Round
	closedAt time.Time

	tracker *randomness.Tracker
	payout  *payout.Executor
	store   RoundStore
	events  *feed
	now     func() time.Time
}

// New starts a fresh round.
func New(cfg Config, requester randomness.Requester, transferer payout.Transferer, opts ...Option) (*Machine, error) {
	m := newMachine(cfg, requester, transferer, opts)
	r, err := state.NewRound(cfg.EntranceFee, m.now())
	if err != nil {
		return nil, err
	}
	m.round = r
	if err := m.checkpoint(r); err != nil {
		return nil, err
	}
	return m, nil
}

// Open resumes the round kept in rounds, or starts a fresh one when nothing
// has been stored yet.
func Open(cfg Config, rounds RoundStore, requester randomness.Requester, transferer payout.Transferer, opts ...Option) (*Machine, error) {
	opts = append(opts, WithStore(rounds))

	storedFee, rec, err := rounds.GetRound()
	if errors.Is(err, store.ErrRoundNotFound) {
		return New(cfg, requester, transferer, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}

	fee, err := decimal.NewFromString(storedFee)
	if err != nil {
		return nil, fmt.Errorf("stored entrance fee %q: %w", storedFee, err)
	}
	if !fee.Equal(cfg.EntranceFee) {
		return nil, fmt.Errorf("%w: stored %s, configured %s", ErrEntranceFeeMismatch, fee, cfg.EntranceFee)
	}

	r, err := state.FromRecord(cfg.EntranceFee, rec)
	if err != nil {
		return nil, err
	}

	m := newMachine(cfg, requester, transferer, opts)
	m.round = r
	if r.Status == state.StatusCalculating {
		m.closedAt = m.now()
	}
	metrics.SetPool(r.Ledger.Pool())

	pending, _ := r.PendingID()
	log.Raffle.Info().
		Stringer("status", r.Status).
		Int("entrants", r.Ledger.Len()).
		Stringer("pool", r.Ledger.Pool()).
		Uint64("pending_request", uint64(pending)).
		Msg("round restored")
	return m, nil
}

func newMachine(cfg Config, requester randomness.Requester, transferer payout.Transferer, opts []Option) *Machine {
	m := &Machine{
		cfg:     cfg,
		tracker: randomness.NewTracker(requester, cfg.Request),
		payout:  payout.NewExecutor(transferer),
		events:  newFeed(),
		now:     roundclock.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enter records one paid entry for participant.
func (m *Machine) Enter(ctx context.Context, participant crypto.Address, fee decimal.Decimal) error {
	_, err := m.Admit(ctx, participant, fee)
	return err
}

// Admit is Enter that also returns the pool as it stood right after this
// entry, before any later entry could be added.
func (m *Machine) Admit(ctx context.Context, participant crypto.Address, fee decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round.Status != state.StatusOpen {
		return decimal.Decimal{}, fmt.Errorf("%w: status %s", ErrRaffleNotOpen, m.round.Status)
	}

	next := m.round.Clone()
	if err := next.Ledger.AddEntrant(participant, fee); err != nil {
		return decimal.Decimal{}, err
	}
	if err := m.checkpoint(next); err != nil {
		return decimal.Decimal{}, err
	}
	m.round = next

	metrics.RecordEntry(next.Ledger.Pool())
	log.Raffle.Debug().
		Stringer("participant", participant).
		Stringer("fee", fee).
		Stringer("pool", next.Ledger.Pool()).
		Msg("entry accepted")
	m.events.publish(EventEntryAccepted, m.now(), EntryAcceptedPayload{Participant: participant, Fee: fee})
	return next.Ledger.Pool(), nil
}

// CheckUpkeep reports whether PerformUpkeep would close the round now. It
// never mutates the round.
func (m *Machine) CheckUpkeep(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.upkeepNeeded(m.now()), nil
}

func (m *Machine) upkeepNeeded(now time.Time) bool {
	return upkeep.Evaluate(m.round, now, m.cfg.Interval, m.cfg.MinBalance)
}

// PerformUpkeep closes the round and requests randomness. It returns as
// soon as the oracle has accepted the request.
func (m *Machine) PerformUpkeep(ctx context.Context) (state.RequestID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !m.upkeepNeeded(now) {
		return 0, fmt.Errorf("%w: status %s, entrants %d, pool %s, elapsed %s",
			ErrUpkeepNotNeeded, m.round.Status, m.round.Ledger.Len(), m.round.Ledger.Pool(), m.round.Clock.Elapsed(now))
	}

	next := m.round.Clone()
	id, err := m.tracker.Request(ctx, next)
	if err != nil {
		return 0, err
	}
	if err := m.checkpoint(next); err != nil {
		return 0, err
	}
	m.round = next
	m.closedAt = now

	metrics.RecordRoundClosed()
	log.Raffle.Info().
		Stringer("request_id", id).
		Int("entrants", next.Ledger.Len()).
		Stringer("pool", next.Ledger.Pool()).
		Msg("round closed")
	m.events.publish(EventRoundClosed, now, RoundClosedPayload{RequestID: id})
	return id, nil
}

// FulfillRandomWords delivers the oracle's words for request id. Only the
// first word is used. An unknown or stale id is rejected without touching
// the round. Once the id is accepted it is consumed even if the payout then
// fails; the round then stays CALCULATING with its entrants and pool.
func (m *Machine) FulfillRandomWords(ctx context.Context, id state.RequestID, words []randomness.Word) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	accepted := m.round.Clone()
	if err := m.tracker.Accept(accepted, id); err != nil {
		metrics.RecordFulfillRejected(metrics.RejectUnknownRequest)
		log.Raffle.Warn().Err(err).Stringer("request_id", id).Msg("fulfilment rejected")
		return err
	}
	if len(words) == 0 {
		metrics.RecordFulfillRejected(metrics.RejectNoWords)
		return fmt.Errorf("%w: request %s", ErrNoRandomWords, id)
	}
	if err := m.checkpoint(accepted); err != nil {
		return err
	}
	m.round = accepted

	winner, index, err := selection.Select(accepted.Ledger.Entrants(), words[0])
	if err != nil {
		metrics.RecordFulfillRejected(metrics.RejectSelection)
		log.Raffle.Error().Err(err).Stringer("request_id", id).Msg("winner selection failed")
		return err
	}

	now := m.now()
	paid := accepted.Clone()
	if err := m.payout.Payout(ctx, paid, winner, now); err != nil {
		metrics.RecordFulfillRejected(metrics.RejectTransfer)
		log.Raffle.Error().Err(err).
			Stringer("request_id", id).
			Stringer("winner", winner).
			Stringer("pool", accepted.Ledger.Pool()).
			Msg("payout failed, round held for recovery")
		return err
	}
	amount := accepted.Ledger.Pool()
	m.round = paid

	metrics.RecordWinnerPicked(m.closedAt)
	log.Raffle.Info().
		Stringer("request_id", id).
		Stringer("winner", winner).
		Int("index", index).
		Stringer("amount", amount).
		Msg("winner picked")
	m.events.publish(EventWinnerPicked, now, WinnerPickedPayload{Winner: winner, Amount: amount})

	// The transfer happened, so the new round stands even if it cannot be
	// stored right now.
	return m.checkpoint(paid)
}

func (m *Machine) checkpoint(r *state.Round) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.PutRound(m.cfg.EntranceFee.String(), r.ToRecord()); err != nil {
		log.Store.Error().Err(err).Stringer("status", r.Status).Msg("checkpoint round")
		return fmt.Errorf("%w: %w", ErrCheckpoint, err)
	}
	return nil
}

// Subscribe returns a channel of events committed from now on. buffer bounds
// how far the subscriber may fall behind before events are dropped. cancel
// closes the channel.
func (m *Machine) Subscribe(buffer int) (events <-chan Event, cancel func()) {
	return m.events.subscribe(buffer)
}
