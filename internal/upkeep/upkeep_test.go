package upkeep

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/state"
)

var (
	fee      = decimal.NewFromInt(1)
	start    = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	interval = 30 * time.Second
)

func newRound(t *testing.T, entrants int) *state.Round {
	t.Helper()
	r, err := state.NewRound(fee, start)
	require.NoError(t, err)
	for i := 0; i < entrants; i++ {
		require.NoError(t, r.Ledger.AddEntrant(crypto.Address{byte(i + 1)}, fee))
	}
	return r
}

func TestEvaluate(t *testing.T) {
	due := start.Add(interval)

	tests := []struct {
		name       string
		entrants   int
		status     state.Status
		now        time.Time
		minBalance decimal.Decimal
		want       bool
	}{
		{name: "open with players after interval", entrants: 1, status: state.StatusOpen, now: due, minBalance: decimal.Zero, want: true},
		{name: "no players", entrants: 0, status: state.StatusOpen, now: due.Add(time.Hour), minBalance: decimal.Zero, want: false},
		{name: "interval not elapsed", entrants: 1, status: state.StatusOpen, now: due.Add(-time.Second), minBalance: decimal.Zero, want: false},
		{name: "calculating", entrants: 3, status: state.StatusCalculating, now: due.Add(time.Hour), minBalance: decimal.Zero, want: false},
		{name: "pool below minimum", entrants: 2, status: state.StatusOpen, now: due, minBalance: decimal.NewFromInt(3), want: false},
		{name: "pool equal to minimum", entrants: 3, status: state.StatusOpen, now: due, minBalance: decimal.NewFromInt(3), want: true},
		{name: "clock before start", entrants: 1, status: state.StatusOpen, now: start.Add(-time.Hour), minBalance: decimal.Zero, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRound(t, tc.entrants)
			r.Status = tc.status
			assert.Equal(t, tc.want, Evaluate(r, tc.now, interval, tc.minBalance))
		})
	}
}

func TestEvaluateZeroFeeRoundIsNeverDue(t *testing.T) {
	r, err := state.NewRound(decimal.Zero, start)
	require.NoError(t, err)
	require.NoError(t, r.Ledger.AddEntrant(crypto.Address{1}, decimal.Zero))

	assert.False(t, Evaluate(r, start.Add(interval), interval, decimal.Zero))
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	r := newRound(t, 2)
	before := r.ToRecord()

	for i := 0; i < 10; i++ {
		Evaluate(r, start.Add(time.Duration(i)*interval), interval, decimal.Zero)
	}
	assert.Equal(t, before, r.ToRecord())
}
