// Package upkeep holds the eligibility predicate polled by the automation
// trigger before it closes a round.
package upkeep

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/state"
)

// Evaluate reports whether the round may be closed at now. It only reads the
// round, so it is safe to call at any frequency.
func Evaluate(r *state.Round, now time.Time, interval time.Duration, minBalance decimal.Decimal) bool {
	isOpen := r.Status == state.StatusOpen
	timePassed := r.Clock.IsDue(now, interval)
	hasPlayers := r.Ledger.Len() > 0
	pool := r.Ledger.Pool()
	hasBalance := pool.IsPositive() && pool.GreaterThanOrEqual(minBalance)

	return isOpen && timePassed && hasPlayers && hasBalance
}
