package orderbook

import (
	"sort"
	"testing"

	"github.com/lightningex/matchingengine/domain"
)

func TestScoreSellAscendingIsPriceThenArrival(t *testing.T) {
	cheap := domain.NewOrder("a", 1, domain.SideSell, 100, 1, 1000, 0)
	expensive := domain.NewOrder("b", 2, domain.SideSell, 200, 1, 1000, 0)
	if Score(cheap) >= Score(expensive) {
		t.Errorf("expected cheaper sell order to score lower: %f vs %f", Score(cheap), Score(expensive))
	}
}

func TestScoreBuyAscendingIsHighestPriceFirst(t *testing.T) {
	high := domain.NewOrder("a", 1, domain.SideBuy, 200, 1, 1000, 0)
	low := domain.NewOrder("b", 2, domain.SideBuy, 100, 1, 1000, 0)
	if Score(high) >= Score(low) {
		t.Errorf("expected the higher-priced bid to score lower (ascending = best first): %f vs %f", Score(high), Score(low))
	}
}

func TestScoreBreaksTiesByArrival(t *testing.T) {
	earlier := domain.NewOrder("a", 1, domain.SideSell, 100, 1, 1000, 0)
	later := domain.NewOrder("b", 2, domain.SideSell, 100, 1, 2000, 0)
	if Score(earlier) >= Score(later) {
		t.Errorf("expected the earlier arrival to score lower at the same price: %f vs %f", Score(earlier), Score(later))
	}
}

func TestScoreBreaksTiesBySideSequenceWithinSameTimestamp(t *testing.T) {
	// One side-sequence step moves the score by 1e-15, which float64 can
	// only resolve next to a small price (at price 100 both round alike).
	first := domain.NewOrder("a", 1, domain.SideSell, 1, 1, 1000, 0)
	second := domain.NewOrder("b", 2, domain.SideSell, 1, 1, 1000, 1)
	if Score(first) >= Score(second) {
		t.Errorf("expected lower side sequence to score lower at the same price and timestamp: %f vs %f", Score(first), Score(second))
	}
}

// TestScoreAgreesWithBookFIFOOrdering cross-checks Score's independent
// formula against the live book's own FIFO-per-price-level traversal:
// both must agree on maker priority.
func TestScoreAgreesWithBookFIFOOrdering(t *testing.T) {
	b := NewBook("BTCUSDT")
	orders := []*domain.Order{
		domain.NewOrder("sell1", 1, domain.SideSell, 50100, 1, 10, 0),
		domain.NewOrder("sell2", 2, domain.SideSell, 50000, 1, 20, 0),
		domain.NewOrder("sell3", 3, domain.SideSell, 50000, 1, 20, 1),
		domain.NewOrder("sell4", 4, domain.SideSell, 49900, 1, 30, 0),
	}
	for _, o := range orders {
		mustInsert(t, b, o)
	}

	byScore := append([]*domain.Order(nil), orders...)
	sort.Slice(byScore, func(i, j int) bool { return Score(byScore[i]) < Score(byScore[j]) })

	var byBook []*domain.Order
	for {
		order, ok := b.PopBest(domain.SideSell)
		if !ok {
			break
		}
		byBook = append(byBook, order)
	}

	if len(byScore) != len(byBook) {
		t.Fatalf("length mismatch: score=%d book=%d", len(byScore), len(byBook))
	}
	for i := range byScore {
		if byScore[i].OrderID != byBook[i].OrderID {
			t.Errorf("position %d: score ordering says %s, book FIFO says %s", i, byScore[i].OrderID, byBook[i].OrderID)
		}
	}
}
