package keeper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/raffle/internal/raffle"
	"github.com/eigerco/raffle/internal/state"
)

type mockUpkeeper struct {
	mock.Mock
}

func (m *mockUpkeeper) CheckUpkeep(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockUpkeeper) PerformUpkeep(ctx context.Context) (state.RequestID, error) {
	args := m.Called(ctx)
	return args.Get(0).(state.RequestID), args.Error(1)
}

func TestTick(t *testing.T) {
	ctx := context.Background()

	t.Run("not needed", func(t *testing.T) {
		target := new(mockUpkeeper)
		target.On("CheckUpkeep", ctx).Return(false, nil).Once()

		closed, _, err := New(target, time.Second).Tick(ctx)
		require.NoError(t, err)
		assert.False(t, closed)
		target.AssertNotCalled(t, "PerformUpkeep", mock.Anything)
	})

	t.Run("closes round", func(t *testing.T) {
		target := new(mockUpkeeper)
		target.On("CheckUpkeep", ctx).Return(true, nil).Once()
		target.On("PerformUpkeep", ctx).Return(state.RequestID(4), nil).Once()

		closed, id, err := New(target, time.Second).Tick(ctx)
		require.NoError(t, err)
		assert.True(t, closed)
		assert.Equal(t, state.RequestID(4), id)
		target.AssertExpectations(t)
	})

	t.Run("lost race", func(t *testing.T) {
		target := new(mockUpkeeper)
		target.On("CheckUpkeep", ctx).Return(true, nil).Once()
		target.On("PerformUpkeep", ctx).Return(state.RequestID(0), fmt.Errorf("%w: status CALCULATING", raffle.ErrUpkeepNotNeeded)).Once()

		closed, _, err := New(target, time.Second).Tick(ctx)
		require.NoError(t, err)
		assert.False(t, closed)
	})

	t.Run("oracle failure", func(t *testing.T) {
		oracleErr := errors.New("subscription not funded")
		target := new(mockUpkeeper)
		target.On("CheckUpkeep", ctx).Return(true, nil).Once()
		target.On("PerformUpkeep", ctx).Return(state.RequestID(0), oracleErr).Once()

		_, _, err := New(target, time.Second).Tick(ctx)
		assert.ErrorIs(t, err, oracleErr)
	})
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	performed := make(chan struct{})
	target := new(mockUpkeeper)
	target.On("CheckUpkeep", mock.Anything).Return(true, nil)
	target.On("PerformUpkeep", mock.Anything).Return(state.RequestID(1), nil).Once().Run(func(mock.Arguments) {
		close(performed)
	})
	target.On("PerformUpkeep", mock.Anything).Return(state.RequestID(0), raffle.ErrUpkeepNotNeeded)

	done := make(chan error, 1)
	go func() { done <- New(target, 5*time.Millisecond).Run(ctx) }()

	select {
	case <-performed:
	case <-time.After(5 * time.Second):
		t.Fatal("keeper never closed the round")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("keeper did not stop")
	}
}
