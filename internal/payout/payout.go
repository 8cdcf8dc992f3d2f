// Package payout moves the pool of a finished round to its winner and opens
// the next round.
package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/state"
)

var ErrTransferFailed = errors.New("transfer failed")

// Transferer moves value to a recipient. A transfer either completes or
// leaves no trace.
type Transferer interface {
	Transfer(ctx context.Context, to crypto.Address, amount decimal.Decimal) error
}

type Executor struct {
	transferer Transferer
}

func NewExecutor(t Transferer) *Executor {
	return &Executor{transferer: t}
}

// Payout sends the whole pool to winner. On failure the round is not touched
// and stays CALCULATING. On success the ledger is cleared, the clock restarts
// at now and the round is OPEN again. The caller must hold the round
// exclusively for the whole call.
func (e *Executor) Payout(ctx context.Context, r *state.Round, winner crypto.Address, now time.Time) error {
	amount := r.Ledger.Pool()
	if err := e.transferer.Transfer(ctx, winner, amount); err != nil {
		return fmt.Errorf("%w: %s to %s: %w", ErrTransferFailed, amount, winner, err)
	}

	r.Ledger.Reset()
	r.Clock.Restart(now)
	r.RecentWinner = winner
	r.Status = state.StatusOpen
	return nil
}
