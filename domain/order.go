// Package domain holds the types shared by every component of the matching
// engine: resting orders, trades, and the error taxonomy the engine reports
// to its callers.
package domain

import "container/list"

// Side represents the order side (Buy or Sell).
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType represents the type of order. Only Limit is implemented; Market
// is accepted by validation but rejected with ErrNotImplemented.
type OrderType int

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
)

func (t OrderType) String() string {
	if t == OrderTypeMarket {
		return "market"
	}
	return "limit"
}

// Order is a resting record in one symbol's order book.
//
// Qty is always the REMAINING quantity: it is decremented in place as the
// order is filled, never tracked separately from a cumulative "filled"
// counter. An order reaching Qty 0 is removed from the book atomically with
// the fill that caused it.
//
// SideSequence is the per-side tie-break counter allocated at submission
// time (see package sequence); together with Timestamp it forms the
// (Timestamp, SideSequence) pair that decides maker priority between two
// resting orders at the same price.
type Order struct {
	OrderID      string
	UserID       int64
	Side         Side
	Price        int64
	Qty          int64
	Timestamp    int64
	SideSequence uint64

	// elem is the orderbook index's removal handle (a *list.Element) for
	// O(1) cancellation out of its price level's FIFO queue. Set only by
	// the orderbook package.
	elem *list.Element
}

// NewOrder constructs a resting order with the given identity and terms.
func NewOrder(orderID string, userID int64, side Side, price, qty, timestampMs int64, sideSeq uint64) *Order {
	return &Order{
		OrderID:      orderID,
		UserID:       userID,
		Side:         side,
		Price:        price,
		Qty:          qty,
		Timestamp:    timestampMs,
		SideSequence: sideSeq,
	}
}

// Elem returns the FIFO-queue handle the index uses to remove this order
// in O(1), or nil if the order is not currently resting in any book.
func (o *Order) Elem() *list.Element { return o.elem }

// SetElem records the FIFO-queue handle. Called only by the orderbook
// package's index types.
func (o *Order) SetElem(e *list.Element) { o.elem = e }
