package orderbook

import (
	"fmt"

	"github.com/lightningex/matchingengine/domain"
)

// IndexKind selects which index implementation backs a Book's two sides.
type IndexKind int

const (
	// HashMapListIndex is a HashMap of price to doubly linked price levels.
	// O(1) best-price access; best suited to books with few simultaneously
	// open price levels.
	HashMapListIndex IndexKind = iota

	// ShardedIndex buckets prices into a red-black tree of fixed-size
	// arrays addressed by bit-masked index. Scales better once a symbol
	// has many simultaneously open price levels.
	ShardedIndex
)

func newIndex(kind IndexKind, descending bool) index {
	if kind == ShardedIndex {
		return newShardedIndex(descending)
	}
	return newHashMapIndex(descending)
}

// Book is one symbol's order book: a bid side and an ask side, each kept in
// strict price-time priority, plus the order-id -> record map the matching
// engine uses to look up a resting order by id. Book is not safe for
// concurrent use; matching.Engine serializes all access behind its
// per-symbol mutex.
type Book struct {
	symbol string
	bids   index // descending: best = highest price
	asks   index // ascending: best = lowest price
	orders map[string]*domain.Order
}

// NewBook returns a Book backed by the default index (HashMapListIndex).
func NewBook(symbol string) *Book {
	return NewBookWithIndex(symbol, HashMapListIndex)
}

// NewBookWithIndex returns a Book backed by the requested index
// implementation, chosen per symbol by whatever policy the caller wants
// (e.g. sharded for high-liquidity symbols, hashmap-list otherwise).
func NewBookWithIndex(symbol string, kind IndexKind) *Book {
	return &Book{
		symbol: symbol,
		bids:   newIndex(kind, true),
		asks:   newIndex(kind, false),
		orders: make(map[string]*domain.Order),
	}
}

func (b *Book) sideIndex(side domain.Side) index {
	if side == domain.SideBuy {
		return b.bids
	}
	return b.asks
}

// PeekBest returns the head of side's book without removing it.
func (b *Book) PeekBest(side domain.Side) (orderID string, price int64, ok bool) {
	lvl := b.sideIndex(side).bestLevel()
	if lvl == nil || lvl.Orders.Len() == 0 {
		return "", 0, false
	}
	head := lvl.Orders.Front().Value.(*domain.Order)
	return head.OrderID, lvl.Price, true
}

// BestPrice is a convenience wrapper over PeekBest that returns only the
// best price.
func (b *Book) BestPrice(side domain.Side) (int64, bool) {
	_, price, ok := b.PeekBest(side)
	return price, ok
}

// PopBest removes and returns the head of side's book.
func (b *Book) PopBest(side domain.Side) (*domain.Order, bool) {
	orderID, _, ok := b.PeekBest(side)
	if !ok {
		return nil, false
	}

	order, ok := b.orders[orderID]
	if !ok {
		return nil, false
	}

	b.sideIndex(side).remove(order)
	delete(b.orders, orderID)
	return order, true
}

// DecrementQty reduces the resting order's Qty by delta. The caller
// guarantees delta < the order's current Qty (a full consumption goes
// through PopBest instead), so the order always survives with Qty > 0.
func (b *Book) DecrementQty(orderID string, delta int64) error {
	order, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("orderbook: decrement unknown order %q: %w", orderID, domain.ErrStateCorruption)
	}

	lvl := b.sideIndex(order.Side).levelAt(order.Price)
	if lvl == nil {
		return fmt.Errorf("orderbook: decrement order %q: %w", orderID, domain.ErrStateCorruption)
	}

	order.Qty -= delta
	lvl.Volume -= delta
	return nil
}

// Insert adds a new resting order to its side at the correct price level,
// appended to that level's FIFO tail.
func (b *Book) Insert(order *domain.Order) error {
	if _, exists := b.orders[order.OrderID]; exists {
		return fmt.Errorf("orderbook: duplicate order id %q: %w", order.OrderID, domain.ErrStateCorruption)
	}

	b.sideIndex(order.Side).insert(order)
	b.orders[order.OrderID] = order
	return nil
}

// Lookup returns the full record for orderID.
func (b *Book) Lookup(orderID string) (*domain.Order, bool) {
	order, ok := b.orders[orderID]
	return order, ok
}

// Snapshot returns up to depth distinct price levels from side's best
// price, each aggregated to a price and total resting quantity.
func (b *Book) Snapshot(side domain.Side, depth int) []PriceLevel {
	levels := b.sideIndex(side).depth(depth)
	if len(levels) == 0 {
		return nil
	}

	out := make([]PriceLevel, len(levels))
	for i, lvl := range levels {
		out[i] = PriceLevel{Price: lvl.Price, Qty: lvl.Volume}
	}
	return out
}

// Size returns the number of resting orders across both sides.
func (b *Book) Size() int { return len(b.orders) }

// Orders returns every resting order on side, across all open price
// levels, in full price-time priority order (index order, then FIFO
// within each level). Unlike Snapshot, it is not capped to 100 levels:
// it exists to let a backing store mirror the whole book, not to render
// the throttled order-book channel payload.
func (b *Book) Orders(side domain.Side) []*domain.Order {
	levels := b.sideIndex(side).depth(b.Size())
	if len(levels) == 0 {
		return nil
	}

	out := make([]*domain.Order, 0, b.Size())
	for _, lvl := range levels {
		for e := lvl.Orders.Front(); e != nil; e = e.Next() {
			out = append(out, e.Value.(*domain.Order))
		}
	}
	return out
}
