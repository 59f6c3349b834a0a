package orderbook

import "github.com/lightningex/matchingengine/domain"

// Score maps an order's (price, side, arrival time, side sequence) onto a
// single float64 such that ascending order over a side's resting orders
// yields the correct head-of-book: lowest score first for asks, lowest
// score first for bids too once bid prices are negated below.
//
// It is not used by Book for live ordering (see the index types in
// level.go, hashmap_index.go and sharded_index.go, which avoid
// floating-point price comparison entirely) but is kept as the normative
// single-number sort key mirrored into publish.RedisBus's sorted sets, and
// as an independent check in tests that the book's FIFO-per-price-level
// traversal agrees with this formula.
func Score(order *domain.Order) float64 {
	fraction := float64(order.Timestamp*100+int64(order.SideSequence)) / 1e15

	if order.Side == domain.SideSell {
		return float64(order.Price) + fraction
	}
	return -float64(order.Price) + fraction
}
