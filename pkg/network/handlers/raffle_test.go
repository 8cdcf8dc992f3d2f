package handlers

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/oracle"
	"github.com/eigerco/raffle/internal/raffle"
	"github.com/eigerco/raffle/internal/randomness"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/internal/wallet"
	"github.com/eigerco/raffle/pkg/network/mocks/stream"
	"github.com/eigerco/raffle/pkg/network/protocol"
)

const testInterval = 30 * time.Second

var fee = decimal.NewFromInt(1)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	machine     *raffle.Machine
	coordinator *oracle.Coordinator
	accounts    *wallet.Accounts
	clock       *clock
	oraclePub   ed25519.PublicKey
	requester   *RaffleRequester
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		coordinator: oracle.NewCoordinator(oracle.Config{}),
		accounts:    wallet.NewAccounts(),
		clock:       &clock{now: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)},
		requester:   &RaffleRequester{},
	}
	t.Cleanup(f.coordinator.Close)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	f.oraclePub = pub

	cfg := raffle.Config{
		EntranceFee: fee,
		Interval:    testInterval,
		MinBalance:  decimal.Zero,
		Request: randomness.RequestConfig{
			SubscriptionID: 1,
			NumWords:       randomness.DefaultNumWords,
		},
	}
	f.machine, err = raffle.New(cfg, f.coordinator, f.accounts, raffle.WithNow(f.clock.Now))
	require.NoError(t, err)
	f.coordinator.AddConsumer(cfg.Request.SubscriptionID, f.machine)
	return f
}

func newPeer(t *testing.T) ed25519.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}

// exchange serves one stream with handler while client runs against the
// other end.
func exchange(t *testing.T, handler protocol.StreamHandler, peerKey ed25519.PublicKey, client func(ctx context.Context, s *stream.PipeStream)) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientEnd, serverEnd := stream.NewPipe()
	done := make(chan error, 1)
	go func() {
		done <- handler.HandleStream(ctx, serverEnd, peerKey)
	}()

	client(ctx, clientEnd)
	require.NoError(t, <-done)
}

func TestEnterHandler(t *testing.T) {
	f := newFixture(t)
	peer := newPeer(t)

	exchange(t, NewEnterHandler(f.machine), peer, func(ctx context.Context, s *stream.PipeStream) {
		participant, pool, err := f.requester.Enter(ctx, s, decimal.RequireFromString("1.5"))
		require.NoError(t, err)
		assert.Equal(t, crypto.AddressFromPublicKey(peer), participant)
		assert.True(t, pool.Equal(decimal.RequireFromString("1.5")))
	})

	entrant, err := f.machine.EntrantAt(0)
	require.NoError(t, err)
	assert.Equal(t, crypto.AddressFromPublicKey(peer), entrant)
}

// crowdedRaffle reports a round that already holds entries made after the
// caller's own.
type crowdedRaffle struct {
	*raffle.Machine
}

func (c crowdedRaffle) Snapshot() *state.Round {
	r := c.Machine.Snapshot()
	_ = r.Ledger.AddEntrant(crypto.Address{0xee}, decimal.NewFromInt(100))
	return r
}

func TestEnterHandlerReportsOwnPool(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.machine.Enter(context.Background(), crypto.Address{1}, fee))

	exchange(t, NewEnterHandler(crowdedRaffle{f.machine}), newPeer(t), func(ctx context.Context, s *stream.PipeStream) {
		_, pool, err := f.requester.Enter(ctx, s, fee)
		require.NoError(t, err)
		assert.True(t, pool.Equal(decimal.NewFromInt(2)), "pool %s", pool)
	})
}

func TestEnterHandlerInsufficientFee(t *testing.T) {
	f := newFixture(t)

	exchange(t, NewEnterHandler(f.machine), newPeer(t), func(ctx context.Context, s *stream.PipeStream) {
		_, _, err := f.requester.Enter(ctx, s, decimal.RequireFromString("0.5"))
		require.ErrorIs(t, err, raffle.ErrInsufficientFee)

		var remote *RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, CodeInsufficientFee, remote.Code)
	})
	assert.Equal(t, 0, f.machine.NumEntrants())
}

func TestEnterHandlerMalformedFee(t *testing.T) {
	f := newFixture(t)

	exchange(t, NewEnterHandler(f.machine), newPeer(t), func(ctx context.Context, s *stream.PipeStream) {
		err := call(ctx, s, enterRequest{Fee: "lots"}, nil)
		assert.ErrorIs(t, err, ErrBadRequest)
	})
}

func TestStatusHandler(t *testing.T) {
	f := newFixture(t)
	peer := newPeer(t)
	require.NoError(t, f.machine.Enter(context.Background(), crypto.AddressFromPublicKey(peer), fee))

	exchange(t, NewStatusHandler(f.machine), peer, func(ctx context.Context, s *stream.PipeStream) {
		status, err := f.requester.Status(ctx, s)
		require.NoError(t, err)
		assert.True(t, status.EntranceFee.Equal(fee))
		assert.Equal(t, testInterval, status.Interval)
		assert.Equal(t, state.StatusOpen, status.Round.Status)
		assert.Equal(t, []crypto.Address{crypto.AddressFromPublicKey(peer)}, status.Round.Ledger.Entrants())
		assert.True(t, status.Round.Ledger.Pool().Equal(fee))
		assert.True(t, status.Round.Clock.StartedAt.Equal(f.clock.Now()))
	})
}

func TestUpkeepHandlers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.machine.Enter(context.Background(), crypto.Address{1}, fee))

	exchange(t, NewCheckUpkeepHandler(f.machine), newPeer(t), func(ctx context.Context, s *stream.PipeStream) {
		needed, err := f.requester.CheckUpkeep(ctx, s)
		require.NoError(t, err)
		assert.False(t, needed)
	})
	exchange(t, NewPerformUpkeepHandler(f.machine), newPeer(t), func(ctx context.Context, s *stream.PipeStream) {
		_, err := f.requester.PerformUpkeep(ctx, s)
		assert.ErrorIs(t, err, raffle.ErrUpkeepNotNeeded)
	})

	f.clock.Advance(testInterval + time.Second)

	exchange(t, NewCheckUpkeepHandler(f.machine), newPeer(t), func(ctx context.Context, s *stream.PipeStream) {
		needed, err := f.requester.CheckUpkeep(ctx, s)
		require.NoError(t, err)
		assert.True(t, needed)
	})
	exchange(t, NewPerformUpkeepHandler(f.machine), newPeer(t), func(ctx context.Context, s *stream.PipeStream) {
		id, err := f.requester.PerformUpkeep(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, state.RequestID(1), id)
	})
	assert.Equal(t, state.StatusCalculating, f.machine.Status())
}

func TestFulfillHandler(t *testing.T) {
	f := newFixture(t)
	winner := crypto.Address{7}
	require.NoError(t, f.machine.Enter(context.Background(), winner, fee))
	f.clock.Advance(testInterval + time.Second)
	id, err := f.machine.PerformUpkeep(context.Background())
	require.NoError(t, err)

	words := []randomness.Word{randomness.WordFromUint64(12345)}

	// Anyone but the oracle is turned away
	exchange(t, NewFulfillHandler(f.machine, f.oraclePub), newPeer(t), func(ctx context.Context, s *stream.PipeStream) {
		err := f.requester.Fulfill(ctx, s, id, words)
		assert.ErrorIs(t, err, ErrUnauthorizedOracle)
	})
	assert.Equal(t, state.StatusCalculating, f.machine.Status())

	exchange(t, NewFulfillHandler(f.machine, f.oraclePub), f.oraclePub, func(ctx context.Context, s *stream.PipeStream) {
		require.NoError(t, f.requester.Fulfill(ctx, s, id, words))
	})
	assert.Equal(t, state.StatusOpen, f.machine.Status())
	assert.Equal(t, winner, f.machine.RecentWinner())
	assert.True(t, f.accounts.Balance(winner).Equal(fee))

	// The same request cannot be delivered twice
	exchange(t, NewFulfillHandler(f.machine, f.oraclePub), f.oraclePub, func(ctx context.Context, s *stream.PipeStream) {
		err := f.requester.Fulfill(ctx, s, id, words)
		assert.ErrorIs(t, err, raffle.ErrUnknownRequest)
	})
}

func TestFulfillHandlerWithoutOracleKey(t *testing.T) {
	f := newFixture(t)

	exchange(t, NewFulfillHandler(f.machine, nil), newPeer(t), func(ctx context.Context, s *stream.PipeStream) {
		err := f.requester.Fulfill(ctx, s, 1, nil)
		assert.ErrorIs(t, err, ErrUnauthorizedOracle)
	})
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	registry := protocol.NewRegistry()
	Register(registry, f.machine, f.oraclePub)

	for _, kind := range []protocol.StreamKind{
		protocol.StreamKindEnter,
		protocol.StreamKindStatus,
		protocol.StreamKindCheckUpkeep,
		protocol.StreamKindPerformUpkeep,
		protocol.StreamKindFulfill,
	} {
		_, err := registry.GetHandler(kind)
		assert.NoError(t, err, kind.String())
	}
}

func TestTruncatedResponseBody(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := codec.Encode(performUpkeepResponse{RequestID: 0x0102030405060708})
	require.NoError(t, err)
	response, err := codec.Encode(envelope{Code: uint8(CodeOK), Body: body[:3]})
	require.NoError(t, err)

	clientEnd, serverEnd := stream.NewPipe()
	go func() {
		if _, err := protocol.ReadMessageWithContext(ctx, serverEnd); err != nil {
			return
		}
		_ = protocol.WriteMessageWithContext(ctx, serverEnd, response)
		_ = serverEnd.Close()
	}()

	id, err := (&RaffleRequester{}).PerformUpkeep(ctx, clientEnd)
	require.Error(t, err)
	assert.Zero(t, id)
}
