package protocol

import (
	"errors"

	"github.com/quic-go/quic-go"
)

// isConnectionGone reports errors after which no further stream can arrive.
func isConnectionGone(err error) bool {
	var (
		idle        *quic.IdleTimeoutError
		application *quic.ApplicationError
		transport   *quic.TransportError
	)
	return errors.As(err, &idle) || errors.As(err, &application) || errors.As(err, &transport)
}
