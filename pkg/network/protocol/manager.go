package protocol

import (
	"crypto/tls"
	"fmt"

	"github.com/eigerco/raffle/pkg/log"
	"github.com/eigerco/raffle/pkg/network/transport"
)

// Manager dispatches the streams of every accepted connection. It implements
// transport.ConnectionHandler.
type Manager struct {
	Registry *Registry
}

func NewManager() *Manager {
	return &Manager{Registry: NewRegistry()}
}

// OnConnection starts serving the streams of conn.
func (m *Manager) OnConnection(conn *transport.Conn) error {
	protoConn := NewProtocolConn(conn, m.Registry)
	go m.handleStreams(protoConn)
	return nil
}

// handleStreams accepts streams until the connection goes away.
func (m *Manager) handleStreams(protoConn *ProtocolConn) {
	defer protoConn.Close() //nolint:errcheck

	for {
		if err := protoConn.AcceptStream(); err != nil {
			if protoConn.TConn.Context().Err() != nil {
				return
			}
			if isConnectionGone(err) {
				log.Network.Debug().Err(err).Msg("connection closed")
				return
			}
			log.Network.Debug().Err(err).Msg("stream accept")
		}
	}
}

// GetProtocols returns the supported ALPN protocol strings.
func (m *Manager) GetProtocols() []string {
	return AcceptableProtocols()
}

// ValidateConnection checks the negotiated ALPN protocol.
func (m *Manager) ValidateConnection(tlsState tls.ConnectionState) error {
	if tlsState.NegotiatedProtocol == "" {
		return fmt.Errorf("no protocol negotiated")
	}
	if err := ValidateALPNProtocol(tlsState.NegotiatedProtocol); err != nil {
		return fmt.Errorf("invalid protocol: %w", err)
	}
	return nil
}
