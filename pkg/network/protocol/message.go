package protocol

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize bounds a single framed message.
const MaxMessageSize = 1 << 20

var ErrMessageTooLarge = errors.New("message too large")

// Message is a length prefixed frame: a little-endian uint32 size followed
// by that many bytes.
type Message struct {
	Size    uint32
	Content []byte
}

// WriteMessageWithContext writes one frame, giving up when ctx is done.
func WriteMessageWithContext(ctx context.Context, w io.Writer, content []byte) error {
	if len(content) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(content))
	}

	done := make(chan error, 1)
	go func() {
		frame := make([]byte, 4+len(content))
		binary.LittleEndian.PutUint32(frame, uint32(len(content)))
		copy(frame[4:], content)
		if _, err := w.Write(frame); err != nil {
			done <- fmt.Errorf("failed to write message: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type readResult struct {
	msg *Message
	err error
}

// ReadMessageWithContext reads one frame, giving up when ctx is done.
func ReadMessageWithContext(ctx context.Context, r io.Reader) (*Message, error) {
	done := make(chan readResult, 1)

	go func() {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			done <- readResult{err: fmt.Errorf("failed to read message size: %w", err)}
			return
		}
		if size > MaxMessageSize {
			done <- readResult{err: fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)}
			return
		}

		content := make([]byte, size)
		if _, err := io.ReadFull(r, content); err != nil {
			done <- readResult{err: fmt.Errorf("failed to read message content: %w", err)}
			return
		}
		done <- readResult{msg: &Message{Size: size, Content: content}}
	}()

	select {
	case result := <-done:
		return result.msg, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
