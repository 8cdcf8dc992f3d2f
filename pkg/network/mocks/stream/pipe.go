// Package stream provides in-memory quic.Stream implementations for tests.
package stream

import (
	"context"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

// PipeStream is one end of an in-memory bidirectional stream. Close only
// ends the write direction, like a QUIC FIN.
type PipeStream struct {
	id     quic.StreamID
	reader *io.PipeReader
	writer *io.PipeWriter
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPipe returns the two connected ends of a stream.
func NewPipe() (client, server *PipeStream) {
	clientReader, serverWriter := io.Pipe()
	serverReader, clientWriter := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	client = &PipeStream{reader: clientReader, writer: clientWriter, ctx: ctx, cancel: cancel}
	server = &PipeStream{reader: serverReader, writer: serverWriter, ctx: ctx, cancel: cancel}
	return client, server
}

func (s *PipeStream) StreamID() quic.StreamID { return s.id }

func (s *PipeStream) Read(p []byte) (int, error) { return s.reader.Read(p) }

func (s *PipeStream) Write(p []byte) (int, error) { return s.writer.Write(p) }

func (s *PipeStream) Close() error { return s.writer.Close() }

func (s *PipeStream) CancelRead(quic.StreamErrorCode) {
	_ = s.reader.CloseWithError(io.ErrClosedPipe)
}

func (s *PipeStream) CancelWrite(quic.StreamErrorCode) {
	_ = s.writer.CloseWithError(io.ErrClosedPipe)
	s.cancel()
}

func (s *PipeStream) Context() context.Context { return s.ctx }

func (s *PipeStream) SetReadDeadline(time.Time) error { return nil }

func (s *PipeStream) SetWriteDeadline(time.Time) error { return nil }

func (s *PipeStream) SetDeadline(time.Time) error { return nil }

var _ quic.Stream = (*PipeStream)(nil)
