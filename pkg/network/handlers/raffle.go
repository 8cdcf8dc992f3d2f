package handlers

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/randomness"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/pkg/network/protocol"
)

// Raffle is the state machine served to peers.
type Raffle interface {
	Admit(ctx context.Context, participant crypto.Address, fee decimal.Decimal) (decimal.Decimal, error)
	CheckUpkeep(ctx context.Context) (bool, error)
	PerformUpkeep(ctx context.Context) (state.RequestID, error)
	FulfillRandomWords(ctx context.Context, id state.RequestID, words []randomness.Word) error
	Snapshot() *state.Round
	EntranceFee() decimal.Decimal
	Interval() time.Duration
}

// Register installs a handler for every raffle stream kind. Fulfilments
// are only accepted from oracleKey.
func Register(registry *protocol.Registry, r Raffle, oracleKey ed25519.PublicKey) {
	registry.RegisterHandler(protocol.StreamKindEnter, NewEnterHandler(r))
	registry.RegisterHandler(protocol.StreamKindStatus, NewStatusHandler(r))
	registry.RegisterHandler(protocol.StreamKindCheckUpkeep, NewCheckUpkeepHandler(r))
	registry.RegisterHandler(protocol.StreamKindPerformUpkeep, NewPerformUpkeepHandler(r))
	registry.RegisterHandler(protocol.StreamKindFulfill, NewFulfillHandler(r, oracleKey))
}

// EnterHandler buys one entry for the peer. The entrant is the address of
// the key the peer authenticated with, so nobody can enter on another's
// behalf.
//
//	--> Fee (decimal string)
//	--> FIN
//	<-- Participant ++ Pool
//	<-- FIN
type EnterHandler struct {
	raffle Raffle
}

func NewEnterHandler(r Raffle) *EnterHandler {
	return &EnterHandler{raffle: r}
}

func (h *EnterHandler) HandleStream(ctx context.Context, stream quic.Stream, peerKey ed25519.PublicKey) error {
	return serve(ctx, stream, func(content []byte) (any, error) {
		var req enterRequest
		if err := codec.Decode(content, &req); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		fee, err := decimal.NewFromString(req.Fee)
		if err != nil {
			return nil, fmt.Errorf("%w: fee %q", ErrBadRequest, req.Fee)
		}

		participant := crypto.AddressFromPublicKey(peerKey)
		pool, err := h.raffle.Admit(ctx, participant, fee)
		if err != nil {
			return nil, err
		}
		return enterResponse{
			Participant: participant,
			Pool:        pool.String(),
		}, nil
	})
}

// StatusHandler answers with the round, the entrance fee and the interval.
type StatusHandler struct {
	raffle Raffle
}

func NewStatusHandler(r Raffle) *StatusHandler {
	return &StatusHandler{raffle: r}
}

func (h *StatusHandler) HandleStream(ctx context.Context, stream quic.Stream, _ ed25519.PublicKey) error {
	return serve(ctx, stream, func([]byte) (any, error) {
		return StatusResponse{
			EntranceFee: h.raffle.EntranceFee().String(),
			Interval:    int64(h.raffle.Interval()),
			Round:       h.raffle.Snapshot().ToRecord(),
		}, nil
	})
}

// CheckUpkeepHandler lets any peer ask whether the round is due.
type CheckUpkeepHandler struct {
	raffle Raffle
}

func NewCheckUpkeepHandler(r Raffle) *CheckUpkeepHandler {
	return &CheckUpkeepHandler{raffle: r}
}

func (h *CheckUpkeepHandler) HandleStream(ctx context.Context, stream quic.Stream, _ ed25519.PublicKey) error {
	return serve(ctx, stream, func([]byte) (any, error) {
		needed, err := h.raffle.CheckUpkeep(ctx)
		if err != nil {
			return nil, err
		}
		return checkUpkeepResponse{Needed: needed}, nil
	})
}

// PerformUpkeepHandler lets any peer act as keeper. The round guards itself,
// so an early or repeated call is simply rejected.
type PerformUpkeepHandler struct {
	raffle Raffle
}

func NewPerformUpkeepHandler(r Raffle) *PerformUpkeepHandler {
	return &PerformUpkeepHandler{raffle: r}
}

func (h *PerformUpkeepHandler) HandleStream(ctx context.Context, stream quic.Stream, _ ed25519.PublicKey) error {
	return serve(ctx, stream, func([]byte) (any, error) {
		id, err := h.raffle.PerformUpkeep(ctx)
		if err != nil {
			return nil, err
		}
		return performUpkeepResponse{RequestID: uint64(id)}, nil
	})
}

// FulfillHandler delivers random words from the oracle.
//
//	--> RequestID ++ [Word]
//	--> FIN
//	<-- (empty on success)
//	<-- FIN
type FulfillHandler struct {
	raffle    Raffle
	oracleKey ed25519.PublicKey
}

func NewFulfillHandler(r Raffle, oracleKey ed25519.PublicKey) *FulfillHandler {
	return &FulfillHandler{raffle: r, oracleKey: oracleKey}
}

func (h *FulfillHandler) HandleStream(ctx context.Context, stream quic.Stream, peerKey ed25519.PublicKey) error {
	return serve(ctx, stream, func(content []byte) (any, error) {
		if len(h.oracleKey) == 0 || !bytes.Equal(peerKey, h.oracleKey) {
			return nil, ErrUnauthorizedOracle
		}
		var req fulfillRequest
		if err := codec.Decode(content, &req); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		return nil, h.raffle.FulfillRandomWords(ctx, state.RequestID(req.RequestID), req.Words)
	})
}
