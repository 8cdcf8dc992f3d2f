package raffle

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/pkg/log"
)

// EventKind identifies an emitted round event.
type EventKind string

const (
	EventEntryAccepted EventKind = "entry_accepted"
	EventRoundClosed   EventKind = "round_closed"
	EventWinnerPicked  EventKind = "winner_picked"
)

// Event is emitted after the transition it describes has been committed.
type Event struct {
	ID      uuid.UUID
	Kind    EventKind
	At      time.Time
	Payload any
}

type EntryAcceptedPayload struct {
	Participant crypto.Address
	Fee         decimal.Decimal
}

type RoundClosedPayload struct {
	RequestID state.RequestID
}

type WinnerPickedPayload struct {
	Winner crypto.Address
	Amount decimal.Decimal
}

// feed fans events out to subscribers. A subscriber that does not keep up
// loses events rather than stalling the round.
type feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func newFeed() *feed {
	return &feed{subs: make(map[int]chan Event)}
}

func (f *feed) subscribe(buffer int) (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan Event, buffer)
	f.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (f *feed) publish(kind EventKind, at time.Time, payload any) {
	ev := Event{ID: uuid.New(), Kind: kind, At: at, Payload: payload}

	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			log.Raffle.Warn().Int("subscriber", id).Str("event", string(kind)).Msg("subscriber full, event dropped")
		}
	}
}
