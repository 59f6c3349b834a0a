package domain

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates the caller-visible validation failures Submit can
// report. These travel in Outcome.ErrorCode, not as Go errors — a rejected
// submission is not a programmer-visible failure, it is a normal outcome.
type ErrorCode string

const (
	ErrInvalidOrderType ErrorCode = "invalid_order_type"
	ErrInvalidSide      ErrorCode = "invalid_side"
	ErrInvalidPrice     ErrorCode = "invalid_price"
	ErrInvalidQuantity  ErrorCode = "invalid_quantity"
	ErrNotImplemented   ErrorCode = "not_implemented"
)

// ErrStateCorruption is wrapped by StateError and marks an internal
// invariant violation: an order-id indexed in a book with no matching
// record in the order map, or vice versa. It is never caused by caller
// input and is always fatal to the engine instance that raises it.
var ErrStateCorruption = errors.New("matching engine state corruption")

// StateError reports an internal invariant violation. It always wraps
// ErrStateCorruption so callers can test for it with errors.Is.
type StateError struct {
	Symbol  string
	OrderID string
	Reason  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state corruption: symbol=%s order=%s: %s", e.Symbol, e.OrderID, e.Reason)
}

func (e *StateError) Unwrap() error { return ErrStateCorruption }

// NewStateError constructs a StateError for the given symbol/order.
func NewStateError(symbol, orderID, reason string) *StateError {
	return &StateError{Symbol: symbol, OrderID: orderID, Reason: reason}
}
