package raffle

import (
	"errors"

	"github.com/eigerco/raffle/internal/ledger"
	"github.com/eigerco/raffle/internal/payout"
	"github.com/eigerco/raffle/internal/randomness"
	"github.com/eigerco/raffle/internal/selection"
)

var (
	// Input rejection
	ErrInsufficientFee = ledger.ErrInsufficientFee
	ErrRaffleNotOpen   = errors.New("raffle not open")
	ErrIndexOutOfRange = ledger.ErrIndexOutOfRange

	// Precondition failure
	ErrUpkeepNotNeeded = errors.New("upkeep not needed")
	ErrNotOpen         = randomness.ErrNotOpen

	// Callback integrity failure
	ErrUnknownRequest = randomness.ErrUnknownRequest
	ErrNoRandomWords  = errors.New("no random words")

	// Fatal to the round
	ErrEmptyEntrantSet = selection.ErrEmptyEntrantSet
	ErrTransferFailed  = payout.ErrTransferFailed

	ErrCheckpoint          = errors.New("checkpoint round")
	ErrEntranceFeeMismatch = errors.New("stored round was collected at a different entrance fee")
)
