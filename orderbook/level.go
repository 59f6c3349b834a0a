package orderbook

import (
	"container/list"

	"github.com/lightningex/matchingengine/domain"
)

// level holds every resting order at one price, in strict FIFO arrival
// order. Levels are threaded into a doubly linked list by their owning
// index so the head is always the best price on that side.
type level struct {
	Price  int64
	Orders *list.List // FIFO queue of *domain.Order
	Volume int64      // sum of Qty across Orders, kept in sync on insert/remove/decrement

	next *level
	prev *level
}

func newLevel(price int64) *level {
	return &level{Price: price, Orders: list.New()}
}

// PriceLevel is the public, aggregated view of one price returned by
// Book.Snapshot: a price and the total resting quantity across every order
// at that price. It intentionally does not expose the FIFO queue or any
// index internals.
type PriceLevel struct {
	Price int64
	Qty   int64
}

// index is the ordering structure a Book delegates to for one side. Two
// implementations exist (see hashmap_index.go and sharded_index.go),
// selected through NewBookWithIndex; both give identical price-time
// ordering, differing only in how the set of open price levels is kept
// sorted.
type index interface {
	// insert adds order to its price level's FIFO tail, creating the level
	// if necessary and re-threading the best-price pointer.
	insert(order *domain.Order)

	// remove detaches order from its price level's FIFO queue using its
	// stored list handle, removing the level entirely once it empties.
	remove(order *domain.Order)

	// bestLevel returns the current head of the book for this side, or nil
	// if the side is empty.
	bestLevel() *level

	// levelAt returns the level at an exact price, or nil if none is open.
	levelAt(price int64) *level

	// depth returns up to maxLevels levels starting from the best price.
	depth(maxLevels int) []level

	isEmpty() bool
	size() int
}
