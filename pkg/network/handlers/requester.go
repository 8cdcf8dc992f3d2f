package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/randomness"
	"github.com/eigerco/raffle/internal/state"
)

// RaffleRequester is the client side of the raffle streams. Each call uses
// one freshly opened stream.
type RaffleRequester struct{}

// Enter pays fee into the round and returns the address the entry was
// recorded under along with the new pool.
func (r *RaffleRequester) Enter(ctx context.Context, stream quic.Stream, fee decimal.Decimal) (crypto.Address, decimal.Decimal, error) {
	var resp enterResponse
	if err := call(ctx, stream, enterRequest{Fee: fee.String()}, &resp); err != nil {
		return crypto.Address{}, decimal.Decimal{}, err
	}
	pool, err := decimal.NewFromString(resp.Pool)
	if err != nil {
		return crypto.Address{}, decimal.Decimal{}, fmt.Errorf("pool %q: %w", resp.Pool, err)
	}
	return resp.Participant, pool, nil
}

// Status is the decoded form of StatusResponse.
type Status struct {
	EntranceFee decimal.Decimal
	Interval    time.Duration
	Round       *state.Round
}

func (r *RaffleRequester) Status(ctx context.Context, stream quic.Stream) (*Status, error) {
	var resp StatusResponse
	if err := call(ctx, stream, nil, &resp); err != nil {
		return nil, err
	}
	fee, err := decimal.NewFromString(resp.EntranceFee)
	if err != nil {
		return nil, fmt.Errorf("entrance fee %q: %w", resp.EntranceFee, err)
	}
	round, err := state.FromRecord(fee, resp.Round)
	if err != nil {
		return nil, err
	}
	return &Status{
		EntranceFee: fee,
		Interval:    time.Duration(resp.Interval),
		Round:       round,
	}, nil
}

func (r *RaffleRequester) CheckUpkeep(ctx context.Context, stream quic.Stream) (bool, error) {
	var resp checkUpkeepResponse
	if err := call(ctx, stream, nil, &resp); err != nil {
		return false, err
	}
	return resp.Needed, nil
}

func (r *RaffleRequester) PerformUpkeep(ctx context.Context, stream quic.Stream) (state.RequestID, error) {
	var resp performUpkeepResponse
	if err := call(ctx, stream, nil, &resp); err != nil {
		return 0, err
	}
	return state.RequestID(resp.RequestID), nil
}

func (r *RaffleRequester) Fulfill(ctx context.Context, stream quic.Stream, id state.RequestID, words []randomness.Word) error {
	return call(ctx, stream, fulfillRequest{RequestID: uint64(id), Words: words}, nil)
}
