package protocol

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/quic-go/quic-go"
)

// StreamKind is the first byte written on every stream.
type StreamKind byte

// Every raffle stream carries one request and one response.
const (
	StreamKindEnter         StreamKind = 128
	StreamKindStatus        StreamKind = 129
	StreamKindCheckUpkeep   StreamKind = 130
	StreamKindPerformUpkeep StreamKind = 131
	StreamKindFulfill       StreamKind = 132
)

func (k StreamKind) String() string {
	switch k {
	case StreamKindEnter:
		return "enter"
	case StreamKindStatus:
		return "status"
	case StreamKindCheckUpkeep:
		return "check_upkeep"
	case StreamKindPerformUpkeep:
		return "perform_upkeep"
	case StreamKindFulfill:
		return "fulfill"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// StreamHandler processes individual QUIC streams within a connection
type StreamHandler interface {
	HandleStream(ctx context.Context, stream quic.Stream, peerKey ed25519.PublicKey) error
}

// Registry manages stream handlers for the raffle stream kinds
type Registry struct {
	mu       sync.RWMutex
	handlers map[StreamKind]StreamHandler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[StreamKind]StreamHandler),
	}
}

// ValidateKind checks if a given byte represents a valid stream kind
func (r *Registry) ValidateKind(kindByte byte) error {
	kind := StreamKind(kindByte)
	if kind < StreamKindEnter || kind > StreamKindFulfill {
		return fmt.Errorf("invalid stream kind: %d", kind)
	}
	return nil
}

// RegisterHandler associates a stream handler with a specific stream kind.
func (r *Registry) RegisterHandler(kind StreamKind, handler StreamHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = handler
}

// GetHandler returns an error if no handler is registered for kind.
func (r *Registry) GetHandler(kind StreamKind) (StreamHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("no handler for kind %d", kind)
	}
	return handler, nil
}
