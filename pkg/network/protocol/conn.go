package protocol

import (
	"context"
	"fmt"
	"io"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/raffle/pkg/log"
	"github.com/eigerco/raffle/pkg/network/transport"
)

// ProtocolConn wraps a transport connection with stream kind dispatch.
type ProtocolConn struct {
	TConn    *transport.Conn
	registry *Registry
}

func NewProtocolConn(tConn *transport.Conn, registry *Registry) *ProtocolConn {
	return &ProtocolConn{
		TConn:    tConn,
		registry: registry,
	}
}

// OpenStream opens a new stream and writes kind as its first byte.
func (pc *ProtocolConn) OpenStream(ctx context.Context, kind StreamKind) (quic.Stream, error) {
	stream, err := pc.TConn.OpenStream(ctx)
	if err != nil {
		return nil, err
	}

	if err := writeWithContext(ctx, stream, []byte{byte(kind)}); err != nil {
		stream.CancelRead(0)
		stream.CancelWrite(0)
		return nil, fmt.Errorf("failed to write stream kind: %w", err)
	}
	return stream, nil
}

// AcceptStream accepts the next stream, reads its kind and hands it to the
// registered handler on its own goroutine.
func (pc *ProtocolConn) AcceptStream() error {
	stream, err := pc.TConn.AcceptStream()
	if err != nil {
		return err
	}

	kind := make([]byte, 1)
	if _, err := io.ReadFull(stream, kind); err != nil {
		stream.CancelRead(0)
		stream.CancelWrite(0)
		return fmt.Errorf("failed to read stream kind: %w", err)
	}

	handler, err := pc.registry.GetHandler(StreamKind(kind[0]))
	if err != nil {
		stream.CancelRead(0)
		stream.CancelWrite(0)
		return err
	}

	go func() {
		if err := handler.HandleStream(pc.TConn.Context(), stream, pc.TConn.PeerKey()); err != nil {
			log.Network.Warn().Err(err).Stringer("kind", StreamKind(kind[0])).Msg("stream handler")
		}
	}()
	return nil
}

// writeWithContext writes bytes to a stream with context cancellation support.
func writeWithContext(ctx context.Context, stream quic.Stream, p []byte) error {
	done := make(chan error, 1)
	go func() {
		_, err := stream.Write(p)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (pc *ProtocolConn) Close() error {
	return pc.TConn.Close()
}
