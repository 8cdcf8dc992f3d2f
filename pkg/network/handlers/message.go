package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/randomness"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/pkg/log"
	"github.com/eigerco/raffle/pkg/network/protocol"
	"github.com/eigerco/raffle/pkg/serialization"
)

var codec = serialization.NewSCALE()

// envelope wraps every response. Body is only set when Code is CodeOK.
type envelope struct {
	Code    uint8
	Message string
	Body    []byte
}

type enterRequest struct {
	Fee string
}

type enterResponse struct {
	Participant crypto.Address
	Pool        string
}

// StatusResponse is a consistent view of the round at one instant.
type StatusResponse struct {
	EntranceFee string
	Interval    int64 // nanoseconds
	Round       state.Record
}

type checkUpkeepResponse struct {
	Needed bool
}

type performUpkeepResponse struct {
	RequestID uint64
}

type fulfillRequest struct {
	RequestID uint64
	Words     []randomness.Word
}

// serve reads one request from stream, answers it with handle's result and
// closes the write side. A rejected request is answered, not returned.
func serve(ctx context.Context, stream io.ReadWriteCloser, handle func(request []byte) (any, error)) error {
	msg, err := protocol.ReadMessageWithContext(ctx, stream)
	if err != nil {
		return fmt.Errorf("failed to read request message: %w", err)
	}

	env := envelope{}
	body, handleErr := handle(msg.Content)
	if handleErr != nil {
		env.Code = uint8(CodeOf(handleErr))
		env.Message = handleErr.Error()
	} else if body != nil {
		if env.Body, err = codec.Encode(body); err != nil {
			return err
		}
	}

	response, err := codec.Encode(env)
	if err != nil {
		return err
	}
	if err := protocol.WriteMessageWithContext(ctx, stream, response); err != nil {
		return fmt.Errorf("failed to write response message: %w", err)
	}
	// Close the stream to signal we're done writing (this sets the FIN bit)
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	if handleErr != nil {
		log.Network.Debug().Err(handleErr).Uint8("code", env.Code).Msg("request rejected")
	}
	return nil
}

// call sends request, which may be nil, and decodes the answer into
// response, which may also be nil.
func call(ctx context.Context, stream io.ReadWriteCloser, request, response any) error {
	var content []byte
	if request != nil {
		var err error
		if content, err = codec.Encode(request); err != nil {
			return err
		}
	}
	if err := protocol.WriteMessageWithContext(ctx, stream, content); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	// Closes only the write direction (sets FIN on our side)
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close write: %w", err)
	}

	msg, err := protocol.ReadMessageWithContext(ctx, stream)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var env envelope
	if err := codec.Decode(msg.Content, &env); err != nil {
		return err
	}
	if Code(env.Code) != CodeOK {
		return &RemoteError{Code: Code(env.Code), Message: env.Message}
	}
	if response == nil {
		return nil
	}
	return codec.Decode(env.Body, response)
}
