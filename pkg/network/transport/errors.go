package transport

import "errors"

var (
	ErrInvalidCertificate = errors.New("invalid peer certificate")
	// ErrProtocolRejected means the peer did not negotiate a raffle protocol
	// version this node speaks.
	ErrProtocolRejected = errors.New("raffle protocol rejected")
	ErrListenerFailed   = errors.New("failed to open raffle listener")
	ErrDialFailed       = errors.New("failed to dial raffle node")
	ErrConnFailed       = errors.New("failed to set up raffle connection")
	ErrStopped          = errors.New("transport stopped")
)
