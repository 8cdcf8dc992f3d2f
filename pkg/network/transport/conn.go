package transport

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/quic-go/quic-go"
)

// Conn represents a QUIC connection with a remote peer.
// It manages the underlying QUIC connection, stream creation,
// and connection lifecycle via context cancellation.
type Conn struct {
	qConn     quic.Connection
	transport *Transport
	peerKey   ed25519.PublicKey
	ctx       context.Context
	cancel    context.CancelFunc
}

func newConn(qConn quic.Connection, transport *Transport, peerKey ed25519.PublicKey) *Conn {
	ctx, cancel := context.WithCancel(transport.ctx)
	// Follow the QUIC connection so a close by the peer cancels ctx too.
	go func() {
		select {
		case <-qConn.Context().Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return &Conn{
		qConn:     qConn,
		transport: transport,
		peerKey:   peerKey,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// OpenStream opens a new bidirectional QUIC stream.
func (c *Conn) OpenStream(ctx context.Context) (quic.Stream, error) {
	stream, err := c.qConn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open QUIC stream: %w", err)
	}
	return stream, nil
}

// AcceptStream waits for the next stream opened by the peer. It returns
// once the connection is closed.
func (c *Conn) AcceptStream() (quic.Stream, error) {
	stream, err := c.qConn.AcceptStream(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to accept QUIC stream: %w", err)
	}
	return stream, nil
}

// PeerKey returns the public key of the connected peer.
func (c *Conn) PeerKey() ed25519.PublicKey {
	return c.peerKey
}

// Close closes the connection and cancels all associated streams.
func (c *Conn) Close() error {
	c.cancel()
	c.transport.forget(c)
	return c.qConn.CloseWithError(0, "")
}

// Context is cancelled when the connection is closed.
func (c *Conn) Context() context.Context {
	return c.ctx
}
