package orderbook

import (
	"github.com/lightningex/matchingengine/domain"
)

// hashMapIndex keys open price levels by a map for O(1) lookup and threads
// them into a doubly linked list ordered by price, so the best level is a
// direct pointer dereference. A NASDAQ-ITCH-style book representation,
// preferred when a symbol rarely has more than a few dozen simultaneously
// open price levels.
//
//	GetBestPrice: O(1) direct pointer access
//	Insert at an existing level:  O(1)
//	Insert a brand new level:     O(n) worst case (rare; new levels usually
//	                               land near the best price)
//	Remove:                       O(1) via the order's stored list handle
type hashMapIndex struct {
	levels     map[int64]*level
	best       *level
	descending bool // true for bids (best = highest price), false for asks
}

var _ index = (*hashMapIndex)(nil)

func newHashMapIndex(descending bool) *hashMapIndex {
	return &hashMapIndex{
		levels:     make(map[int64]*level),
		descending: descending,
	}
}

func (ix *hashMapIndex) insert(order *domain.Order) {
	lvl, ok := ix.levels[order.Price]
	if !ok {
		lvl = newLevel(order.Price)
		ix.levels[order.Price] = lvl
		ix.linkLevel(lvl)
	}

	elem := lvl.Orders.PushBack(order)
	order.SetElem(elem)
	lvl.Volume += order.Qty
}

func (ix *hashMapIndex) remove(order *domain.Order) {
	lvl, ok := ix.levels[order.Price]
	if !ok {
		return
	}

	if elem := order.Elem(); elem != nil {
		lvl.Orders.Remove(elem)
		order.SetElem(nil)
		lvl.Volume -= order.Qty
	}

	if lvl.Orders.Len() == 0 {
		ix.unlinkLevel(lvl)
	}
}

func (ix *hashMapIndex) bestLevel() *level { return ix.best }

func (ix *hashMapIndex) levelAt(price int64) *level { return ix.levels[price] }

func (ix *hashMapIndex) depth(maxLevels int) []level {
	if ix.best == nil || maxLevels <= 0 {
		return nil
	}
	out := make([]level, 0, maxLevels)
	for cur := ix.best; cur != nil && len(out) < maxLevels; cur = cur.next {
		out = append(out, *cur)
	}
	return out
}

func (ix *hashMapIndex) isEmpty() bool { return ix.best == nil }

func (ix *hashMapIndex) size() int { return len(ix.levels) }

// isBetter reports whether price1 should sit ahead of price2 for this side.
func (ix *hashMapIndex) isBetter(price1, price2 int64) bool {
	if ix.descending {
		return price1 > price2
	}
	return price1 < price2
}

// linkLevel inserts a freshly created level into the price-ordered list.
func (ix *hashMapIndex) linkLevel(lvl *level) {
	if ix.best == nil {
		ix.best = lvl
		return
	}

	if ix.isBetter(lvl.Price, ix.best.Price) {
		lvl.next = ix.best
		ix.best.prev = lvl
		ix.best = lvl
		return
	}

	cur := ix.best
	for cur.next != nil && !ix.isBetter(lvl.Price, cur.next.Price) {
		cur = cur.next
	}

	lvl.next = cur.next
	lvl.prev = cur
	if cur.next != nil {
		cur.next.prev = lvl
	}
	cur.next = lvl
}

func (ix *hashMapIndex) unlinkLevel(lvl *level) {
	delete(ix.levels, lvl.Price)

	if lvl.prev != nil {
		lvl.prev.next = lvl.next
	}
	if lvl.next != nil {
		lvl.next.prev = lvl.prev
	}
	if ix.best == lvl {
		ix.best = lvl.next
	}
}
