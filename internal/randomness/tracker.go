package randomness

import (
	"context"
	"fmt"

	"github.com/eigerco/raffle/internal/state"
)

// RequestConfig is sent with every request. The defaults mirror a local
// coordinator: 3 confirmations, one word.
type RequestConfig struct {
	KeyHash              [32]byte // gas lane
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
}

const (
	DefaultRequestConfirmations = 3
	DefaultNumWords             = 1
	DefaultCallbackGasLimit     = 500000
)

// Requester submits a request to the oracle and returns its id without
// waiting for the words.
type Requester interface {
	RequestRandomWords(ctx context.Context, cfg RequestConfig) (state.RequestID, error)
}

// Tracker owns the pending request id of a round.
type Tracker struct {
	requester Requester
	config    RequestConfig
}

// NewTracker returns a tracker that sends every request with config.
func NewTracker(requester Requester, config RequestConfig) *Tracker {
	return &Tracker{requester: requester, config: config}
}

// Request asks the oracle for words and moves the round to CALCULATING. If
// the oracle refuses, the round is left untouched.
func (t *Tracker) Request(ctx context.Context, r *state.Round) (state.RequestID, error) {
	if r.Status != state.StatusOpen {
		return 0, fmt.Errorf("%w: status %s", ErrNotOpen, r.Status)
	}

	id, err := t.requester.RequestRandomWords(ctx, t.config)
	if err != nil {
		return 0, fmt.Errorf("request random words: %w", err)
	}

	r.Pending = &id
	r.Status = state.StatusCalculating
	return id, nil
}

// Accept consumes the pending id if it matches. Status is left as is; it only
// returns to OPEN once the payout went through.
func (t *Tracker) Accept(r *state.Round, id state.RequestID) error {
	pending, ok := r.PendingID()
	if r.Status != state.StatusCalculating || !ok {
		return fmt.Errorf("%w: %s, nothing pending", ErrUnknownRequest, id)
	}
	if pending != id {
		return fmt.Errorf("%w: %s, pending %s", ErrUnknownRequest, id, pending)
	}
	r.Pending = nil
	return nil
}
