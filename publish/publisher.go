// Package publish records trades and emits throttled order-book and
// per-trade events for subscribers, using a ring-buffer based fan-out for
// in-process subscribers (see ringbuffer.go) and a go-redis client for the
// Redis-backed implementation.
package publish

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lightningex/matchingengine/domain"
	"github.com/lightningex/matchingengine/orderbook"
	"github.com/lightningex/matchingengine/sequence"
)

// Recorder persists trades as they occur and allocates their ids. One
// Recorder instance is shared by every symbol; it partitions trade-id
// sequences internally per symbol.
type Recorder interface {
	RecordTrade(ctx context.Context, symbol string, maker *domain.Order, takerOrderID string, takerUserID, price, qty, timestampMs int64) (tradeID string, err error)
}

// Publisher emits order-book snapshots and individual trade events on
// per-symbol pub/sub channels.
type Publisher interface {
	PublishOrderBook(ctx context.Context, symbol string, bids, asks []orderbook.PriceLevel) error
	PublishTrade(ctx context.Context, symbol string, trade *domain.Trade) error
}

// BookCounters carries the sequence-counter values mirrored alongside a
// book snapshot: order_seq, buy_seq and sell_seq as allocated by the
// matching engine's own sequence.Allocator, plus the wall-clock timestamp
// of this mirror.
type BookCounters struct {
	OrderSeq      uint64
	BuySeq        uint64
	SellSeq       uint64
	LastPublishMs int64
}

// BookMirror is an optional Publisher capability: mirroring full per-order
// resting state and sequence counters into a backing store, for external
// interoperability. RedisBus implements it; MemoryBus does not, since it
// keeps no external store to mirror into.
type BookMirror interface {
	MirrorBook(ctx context.Context, symbol string, bids, asks []*domain.Order, counters BookCounters) error
}

// orderBookChannel and tradeChannel render the channel names in the wire
// format subscribers expect: "orderbook:{symbol}" and "trades:{symbol}".
func orderBookChannel(symbol string) string { return "orderbook:" + symbol }
func tradeChannel(symbol string) string     { return "trades:" + symbol }

// renderOrderBookPayload renders the order-book snapshot payload:
// "bid_level | bid_level | ... \n ask_level | ask_level | ...", each level
// "price,qty".
func renderOrderBookPayload(bids, asks []orderbook.PriceLevel) string {
	return renderLevels(bids) + "\n" + renderLevels(asks)
}

func renderLevels(levels []orderbook.PriceLevel) string {
	parts := make([]string, len(levels))
	for i, lvl := range levels {
		parts[i] = strconv.FormatInt(lvl.Price, 10) + "," + strconv.FormatInt(lvl.Qty, 10)
	}
	return strings.Join(parts, "|")
}

// renderTradePayload renders the per-trade payload: "price,qty,timestamp_ms".
func renderTradePayload(trade *domain.Trade) string {
	return fmt.Sprintf("%d,%d,%d", trade.Price, trade.Qty, trade.Timestamp)
}

// tradeAllocators hands out a lazily-created, symbol-scoped trade-id
// sequence, mirroring the per-symbol allocator the matching engine keeps
// for order ids and side sequences, but owned independently by the
// recorder since trade-id allocation is a recording concern, not a
// matching one. A Recorder is shared across every symbol and different
// symbols' engines run concurrently, so the map is guarded by a mutex;
// each symbol's own allocator is lock-free internally.
type tradeAllocators struct {
	mu       sync.Mutex
	bySymbol map[string]*sequence.Allocator
}

func newTradeAllocators() *tradeAllocators {
	return &tradeAllocators{bySymbol: make(map[string]*sequence.Allocator)}
}

func (t *tradeAllocators) nextTradeID(symbol string, timestampMs int64) string {
	t.mu.Lock()
	a, ok := t.bySymbol[symbol]
	if !ok {
		a = sequence.NewAllocator()
		t.bySymbol[symbol] = a
	}
	t.mu.Unlock()
	return a.NextTradeID(timestampMs)
}

// currentTradeSeq reports symbol's trade_seq counter without advancing it,
// for mirroring into the persisted trade_seq_{symbol} key. A symbol with
// no allocator yet (no trade recorded) reports 0.
func (t *tradeAllocators) currentTradeSeq(symbol string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.bySymbol[symbol]
	if !ok {
		return 0
	}
	return a.TradeSeq()
}
