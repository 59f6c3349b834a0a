package publish

import (
	"context"
	"sync"

	"github.com/lightningex/matchingengine/domain"
	"github.com/lightningex/matchingengine/orderbook"
)

const memorySubscriberBufferSize = 1024

// MemoryBus is the default, zero-external-dependency Recorder+Publisher: an
// in-process fan-out over one ring buffer per subscriber (see
// ringbuffer.go), plus an in-memory append-only trade log. Publishing never
// blocks the matching engine; a subscriber that falls behind simply misses
// events.
type MemoryBus struct {
	allocators *tradeAllocators

	mu     sync.Mutex
	trades []*domain.Trade
	subs   map[int]*ringBuffer
	nextID int
}

var _ Recorder = (*MemoryBus)(nil)
var _ Publisher = (*MemoryBus)(nil)

// NewMemoryBus returns an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		allocators: newTradeAllocators(),
		subs:       make(map[int]*ringBuffer),
	}
}

// Subscription is a live subscriber handle. Receive blocks for the next
// event; Close detaches the subscriber (further publishes silently drop
// for it rather than erroring).
type Subscription struct {
	bus *MemoryBus
	id  int
	rb  *ringBuffer
}

// Subscribe registers a new subscriber and returns a handle to receive
// every channel's events (the caller filters by Event.Channel).
func (m *MemoryBus) Subscribe() *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	rb := newRingBuffer(memorySubscriberBufferSize)
	m.subs[id] = rb

	return &Subscription{bus: m, id: id, rb: rb}
}

// Event is one message delivered to a Subscription.
type Event struct {
	Channel string
	Payload string
}

// Receive blocks until the next event arrives for this subscription.
func (s *Subscription) Receive() Event {
	msg := s.rb.Consume()
	return Event{Channel: msg.channel, Payload: msg.payload}
}

// Close detaches the subscription from its bus.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
}

func (m *MemoryBus) broadcast(msg message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rb := range m.subs {
		rb.TryPublish(msg)
	}
}

// RecordTrade allocates a trade id, appends the trade to the in-memory log
// and publishes it on the symbol's trade channel.
func (m *MemoryBus) RecordTrade(ctx context.Context, symbol string, maker *domain.Order, takerOrderID string, takerUserID, price, qty, timestampMs int64) (string, error) {
	tradeID := m.allocators.nextTradeID(symbol, timestampMs)
	trade := domain.NewTrade(tradeID, maker, takerOrderID, takerUserID, price, qty, timestampMs)

	m.mu.Lock()
	m.trades = append(m.trades, trade)
	m.mu.Unlock()

	return tradeID, m.PublishTrade(ctx, symbol, trade)
}

// PublishOrderBook broadcasts an order-book snapshot on orderbook:{symbol}.
func (m *MemoryBus) PublishOrderBook(ctx context.Context, symbol string, bids, asks []orderbook.PriceLevel) error {
	m.broadcast(message{channel: orderBookChannel(symbol), payload: renderOrderBookPayload(bids, asks)})
	return nil
}

// PublishTrade broadcasts a single trade on trades:{symbol}.
func (m *MemoryBus) PublishTrade(ctx context.Context, symbol string, trade *domain.Trade) error {
	m.broadcast(message{channel: tradeChannel(symbol), payload: renderTradePayload(trade)})
	return nil
}

// Trades returns a snapshot copy of every trade recorded so far, in
// recording order. Intended for tests and the demonstration entry point;
// not part of the Recorder/Publisher contract.
func (m *MemoryBus) Trades() []*domain.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Trade, len(m.trades))
	copy(out, m.trades)
	return out
}
