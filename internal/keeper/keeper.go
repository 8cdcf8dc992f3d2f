// Package keeper is the automation trigger: it polls the upkeep predicate and
// closes the round once it holds.
package keeper

import (
	"context"
	"errors"
	"time"

	"github.com/eigerco/raffle/internal/raffle"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/pkg/log"
)

// Upkeeper is served by raffle.Machine locally and by the network client
// remotely.
type Upkeeper interface {
	CheckUpkeep(ctx context.Context) (bool, error)
	PerformUpkeep(ctx context.Context) (state.RequestID, error)
}

type Keeper struct {
	target       Upkeeper
	pollInterval time.Duration
}

func New(target Upkeeper, pollInterval time.Duration) *Keeper {
	return &Keeper{target: target, pollInterval: pollInterval}
}

// Run polls until ctx is done.
func (k *Keeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.pollInterval)
	defer ticker.Stop()

	log.Keeper.Info().Dur("poll_interval", k.pollInterval).Msg("keeper started")
	for {
		select {
		case <-ctx.Done():
			log.Keeper.Info().Msg("keeper stopped")
			return nil
		case <-ticker.C:
			if _, _, err := k.Tick(ctx); err != nil {
				log.Keeper.Warn().Err(err).Msg("upkeep")
			}
		}
	}
}

// Tick polls once. It reports whether the round was closed and the request
// id issued for it. Losing a race against another trigger is not an error.
func (k *Keeper) Tick(ctx context.Context) (bool, state.RequestID, error) {
	needed, err := k.target.CheckUpkeep(ctx)
	if err != nil {
		return false, 0, err
	}
	if !needed {
		return false, 0, nil
	}

	id, err := k.target.PerformUpkeep(ctx)
	if errors.Is(err, raffle.ErrUpkeepNotNeeded) {
		log.Keeper.Debug().Err(err).Msg("upkeep no longer needed")
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	log.Keeper.Info().Stringer("request_id", id).Msg("round closed")
	return true, id, nil
}
