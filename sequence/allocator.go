// Package sequence hands out the monotonic, wrapping counters the matching
// engine uses to build order and trade identifiers with price-time
// tie-break sequences, using the same atomic-counter discipline as a
// dedicated trade-id generator, widened to bounded wraparound ranges.
package sequence

import (
	"strconv"
	"sync/atomic"

	"github.com/lightningex/matchingengine/domain"
)

const (
	orderSeqCap = 100000 // order_seq wraps 0..99999
	sideSeqCap  = 100    // buy_seq / sell_seq wrap 0..99
	tradeSeqCap = 100    // trade_seq wraps 0..99
)

// Allocator issues the four per-symbol counters used to identify orders
// and trades and break ties between them: order_seq, buy_seq, sell_seq
// and trade_seq. Each Allocator serves a single symbol and is never shared
// across symbols, so its counters need no further partitioning:
// matching.Engine keeps one per symbol for order ids and side sequences,
// and the publish package keeps its own per-symbol Allocators for trade
// ids.
type Allocator struct {
	orderSeq atomic.Uint64
	buySeq   atomic.Uint64
	sellSeq  atomic.Uint64
	tradeSeq atomic.Uint64
}

// NewAllocator returns a zeroed allocator; counters start at 0 on first use.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// wrap advances counter by one and returns the new value modulo cap. Using
// modulo rather than a reset-on-overflow branch gives identical wraparound
// behavior without a compare-and-swap retry loop.
func wrap(counter *atomic.Uint64, cap uint64) uint64 {
	return (counter.Add(1) - 1) % cap
}

// NextOrderID allocates the next order sequence for timestampMs and renders
// the normative order-id format: "{timestamp_ms}-{order_seq:05d}".
func (a *Allocator) NextOrderID(timestampMs int64) string {
	seq := wrap(&a.orderSeq, orderSeqCap)
	return strconv.FormatInt(timestampMs, 10) + "-" + pad5(seq)
}

// NextSideSequence allocates the tie-break sequence for the given side
// (buy_seq or sell_seq), used together with the order's arrival timestamp
// to break ties between resting orders at the same price level.
func (a *Allocator) NextSideSequence(side domain.Side) uint64 {
	if side == domain.SideBuy {
		return wrap(&a.buySeq, sideSeqCap)
	}
	return wrap(&a.sellSeq, sideSeqCap)
}

// NextTradeID allocates the next trade sequence for timestampMs and renders
// the normative trade-id format: timestamp_ms*100 + trade_seq.
func (a *Allocator) NextTradeID(timestampMs int64) string {
	seq := wrap(&a.tradeSeq, tradeSeqCap)
	id := timestampMs*100 + int64(seq)
	return strconv.FormatInt(id, 10)
}

// current returns the wrapped value last handed out by counter, without
// advancing it: 0 if nothing has been allocated yet, else the same value
// the most recent wrap call returned.
func current(counter *atomic.Uint64, cap uint64) uint64 {
	v := counter.Load()
	if v == 0 {
		return 0
	}
	return (v - 1) % cap
}

// OrderSeq, BuySeq, SellSeq and TradeSeq report each counter's current
// value without advancing it, for mirroring into the persisted counter
// keys (order_seq_{symbol}, buy_seq_{symbol}, sell_seq_{symbol},
// trade_seq_{symbol}) a backing store may expose.
func (a *Allocator) OrderSeq() uint64 { return current(&a.orderSeq, orderSeqCap) }
func (a *Allocator) BuySeq() uint64   { return current(&a.buySeq, sideSeqCap) }
func (a *Allocator) SellSeq() uint64  { return current(&a.sellSeq, sideSeqCap) }
func (a *Allocator) TradeSeq() uint64 { return current(&a.tradeSeq, tradeSeqCap) }

// pad5 zero-pads n to 5 digits. n is always < orderSeqCap (100000), so the
// result is always exactly 5 characters.
func pad5(n uint64) string {
	s := strconv.FormatUint(n, 10)
	for len(s) < 5 {
		s = "0" + s
	}
	return s
}
