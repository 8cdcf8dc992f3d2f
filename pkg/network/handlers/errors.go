package handlers

import (
	"errors"
	"fmt"

	"github.com/eigerco/raffle/internal/raffle"
)

// Code is the outcome carried in every response envelope.
type Code uint8

const (
	CodeOK Code = iota
	CodeInsufficientFee
	CodeRaffleNotOpen
	CodeUpkeepNotNeeded
	CodeNotOpen
	CodeUnknownRequest
	CodeNoRandomWords
	CodeEmptyEntrantSet
	CodeTransferFailed
	CodeCheckpoint
	CodeUnauthorized
	CodeBadRequest
	CodeInternal Code = 255
)

var (
	ErrUnauthorizedOracle = errors.New("fulfilment not sent by the oracle")
	ErrBadRequest         = errors.New("malformed request")
	ErrInternal           = errors.New("internal error")
)

// codes is ordered so that the most specific sentinel wins when an error
// wraps several of them.
var codes = []struct {
	code Code
	err  error
}{
	{CodeInsufficientFee, raffle.ErrInsufficientFee},
	{CodeRaffleNotOpen, raffle.ErrRaffleNotOpen},
	{CodeUpkeepNotNeeded, raffle.ErrUpkeepNotNeeded},
	{CodeNotOpen, raffle.ErrNotOpen},
	{CodeUnknownRequest, raffle.ErrUnknownRequest},
	{CodeNoRandomWords, raffle.ErrNoRandomWords},
	{CodeEmptyEntrantSet, raffle.ErrEmptyEntrantSet},
	{CodeTransferFailed, raffle.ErrTransferFailed},
	{CodeCheckpoint, raffle.ErrCheckpoint},
	{CodeUnauthorized, ErrUnauthorizedOracle},
	{CodeBadRequest, ErrBadRequest},
}

// CodeOf maps err to its wire code. Errors the protocol has no code for are
// CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

func (c Code) sentinel() error {
	for _, entry := range codes {
		if entry.code == c {
			return entry.err
		}
	}
	return ErrInternal
}

// RemoteError is a failure reported by the node. It unwraps to the matching
// sentinel so callers can use errors.Is across the wire.
type RemoteError struct {
	Code    Code
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Code.sentinel()
}
