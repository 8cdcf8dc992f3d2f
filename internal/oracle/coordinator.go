// Package oracle is a local randomness coordinator. It hands out request ids,
// derives words from them and calls the registered consumer back, either on
// demand or after a fixed delay.
package oracle

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/randomness"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/pkg/log"
)

// MaxNumWords bounds the words a single request may ask for.
const MaxNumWords = 500

var (
	ErrInvalidConsumer    = errors.New("invalid consumer")
	ErrInvalidNumWords    = errors.New("invalid number of words")
	ErrNonexistentRequest = errors.New("nonexistent request")
	ErrWrongWordCount     = errors.New("wrong number of words")
	ErrClosed             = errors.New("coordinator closed")
)

// Consumer receives the words of its requests.
type Consumer interface {
	FulfillRandomWords(ctx context.Context, id state.RequestID, words []randomness.Word) error
}

type request struct {
	subscriptionID uint64
	numWords       uint32
}

type Config struct {
	// AutoFulfill delivers every request FulfillDelay after it was made.
	AutoFulfill  bool
	FulfillDelay time.Duration
}

type Coordinator struct {
	cfg Config

	mu        sync.Mutex
	nextID    state.RequestID
	consumers map[uint64]Consumer
	requests  map[state.RequestID]request

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCoordinator(cfg Config) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:       cfg,
		nextID:    1,
		consumers: make(map[uint64]Consumer),
		requests:  make(map[state.RequestID]request),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// AddConsumer authorizes c to request words on subscriptionID.
func (c *Coordinator) AddConsumer(subscriptionID uint64, consumer Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers[subscriptionID] = consumer
}

func (c *Coordinator) RemoveConsumer(subscriptionID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.consumers, subscriptionID)
}

// RequestRandomWords records a request and returns its id at once. The
// consumer is never called back from inside this method, so a caller holding
// its own lock cannot deadlock against its callback.
func (c *Coordinator) RequestRandomWords(ctx context.Context, cfg randomness.RequestConfig) (state.RequestID, error) {
	if cfg.NumWords == 0 || cfg.NumWords > MaxNumWords {
		return 0, fmt.Errorf("%w: %d", ErrInvalidNumWords, cfg.NumWords)
	}

	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	if _, ok := c.consumers[cfg.SubscriptionID]; !ok {
		c.mu.Unlock()
		return 0, fmt.Errorf("%w: subscription %d", ErrInvalidConsumer, cfg.SubscriptionID)
	}
	id := c.nextID
	c.nextID++
	c.requests[id] = request{subscriptionID: cfg.SubscriptionID, numWords: cfg.NumWords}
	// Added under mu so Close cannot be waiting already.
	if c.cfg.AutoFulfill {
		c.wg.Add(1)
	}
	c.mu.Unlock()

	log.Oracle.Debug().
		Stringer("request_id", id).
		Uint64("subscription", cfg.SubscriptionID).
		Uint32("num_words", cfg.NumWords).
		Msg("random words requested")

	if c.cfg.AutoFulfill {
		go c.fulfillLater(id)
	}
	return id, nil
}

func (c *Coordinator) fulfillLater(id state.RequestID) {
	defer c.wg.Done()

	timer := time.NewTimer(c.cfg.FulfillDelay)
	defer timer.Stop()
	select {
	case <-c.ctx.Done():
		return
	case <-timer.C:
	}

	if err := c.FulfillRandomWords(c.ctx, id); err != nil {
		log.Oracle.Error().Err(err).Stringer("request_id", id).Msg("auto fulfilment failed")
	}
}

// FulfillRandomWords delivers the derived words of request id. The request
// is removed before the consumer is called, so it is delivered at most once.
func (c *Coordinator) FulfillRandomWords(ctx context.Context, id state.RequestID) error {
	return c.fulfill(ctx, id, nil)
}

// FulfillRandomWordsWithOverride delivers words in place of the derived ones.
// len(words) must match the request.
func (c *Coordinator) FulfillRandomWordsWithOverride(ctx context.Context, id state.RequestID, words []randomness.Word) error {
	return c.fulfill(ctx, id, words)
}

func (c *Coordinator) fulfill(ctx context.Context, id state.RequestID, words []randomness.Word) error {
	c.mu.Lock()
	req, ok := c.requests[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNonexistentRequest, id)
	}
	if words != nil && len(words) != int(req.numWords) {
		c.mu.Unlock()
		return fmt.Errorf("%w: got %d, request %s wants %d", ErrWrongWordCount, len(words), id, req.numWords)
	}
	delete(c.requests, id)
	consumer, ok := c.consumers[req.subscriptionID]
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: subscription %d removed", ErrInvalidConsumer, req.subscriptionID)
	}
	if words == nil {
		words = DeriveWords(id, req.numWords)
	}

	if err := consumer.FulfillRandomWords(ctx, id, words); err != nil {
		log.Oracle.Warn().Err(err).Stringer("request_id", id).Msg("consumer rejected words")
		return fmt.Errorf("consumer fulfil %s: %w", id, err)
	}
	log.Oracle.Info().Stringer("request_id", id).Msg("random words fulfilled")
	return nil
}

// Pending lists undelivered request ids in ascending order.
func (c *Coordinator) Pending() []state.RequestID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]state.RequestID, 0, len(c.requests))
	for id := range c.requests {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close stops pending auto fulfilments and waits for running ones.
// Requests made after Close fail with ErrClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}

// DeriveWords computes word i as keccak256 over the request id and i, each
// as a 32-byte big-endian integer.
func DeriveWords(id state.RequestID, n uint32) []randomness.Word {
	words := make([]randomness.Word, n)
	for i := range words {
		var idBytes, indexBytes [32]byte
		binary.BigEndian.PutUint64(idBytes[24:], uint64(id))
		binary.BigEndian.PutUint64(indexBytes[24:], uint64(i))
		words[i] = randomness.Word(crypto.KeccakData(idBytes[:], indexBytes[:]))
	}
	return words
}
