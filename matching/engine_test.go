package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightningex/matchingengine/domain"
	"github.com/lightningex/matchingengine/orderbook"
	"github.com/lightningex/matchingengine/publish"
)

func newTestExchange() *Exchange {
	return NewExchange(ExchangeConfig{PublishThrottleMs: 0})
}

func limitOrder(side domain.Side, price, qty, userID int64) SubmitRequest {
	return SubmitRequest{OrderType: domain.OrderTypeLimit, UserID: userID, Side: side, Price: price, Qty: qty}
}

// Scenario 1: empty book, single buy rest.
func TestScenarioEmptyBookSingleBuyRest(t *testing.T) {
	ex := newTestExchange()
	out, err := ex.Submit(context.Background(), "BTCUSD", limitOrder(domain.SideBuy, 100, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, out.Status)

	engine := ex.GetEngine("BTCUSD")
	depth := engine.book.Snapshot(domain.SideBuy, 10)
	require.Len(t, depth, 1)
	assert.Equal(t, int64(100), depth[0].Price)
	assert.Equal(t, int64(5), depth[0].Qty)
	assert.Empty(t, engine.book.Snapshot(domain.SideSell, 10))
}

// Scenario 2: exact match.
func TestScenarioExactMatch(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	_, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 5, 1))
	require.NoError(t, err)

	out, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 5, 2))
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, out.Status)
	require.Len(t, out.TradeIDs, 1)

	engine := ex.GetEngine("BTCUSD")
	assert.Empty(t, engine.book.Snapshot(domain.SideBuy, 10))
	assert.Empty(t, engine.book.Snapshot(domain.SideSell, 10))
}

// Scenario 3: partial maker fill with price improvement — trade prints at
// the maker's price, never the taker's.
func TestScenarioPartialMakerFillAtMakerPrice(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	_, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 10, 1))
	require.NoError(t, err)

	out, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 105, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, out.Status)
	require.Len(t, out.TradeIDs, 1)

	engine := ex.GetEngine("BTCUSD")
	depth := engine.book.Snapshot(domain.SideSell, 10)
	require.Len(t, depth, 1)
	assert.Equal(t, int64(100), depth[0].Price)
	assert.Equal(t, int64(7), depth[0].Qty)
}

// Scenario 4: walk the book across three price levels.
func TestScenarioWalkTheBook(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	_, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 2, 1))
	require.NoError(t, err)
	_, err = ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 101, 3, 2))
	require.NoError(t, err)
	_, err = ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 102, 4, 3))
	require.NoError(t, err)

	out, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 101, 4, 9))
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, out.Status)
	require.Len(t, out.TradeIDs, 2)

	engine := ex.GetEngine("BTCUSD")
	depth := engine.book.Snapshot(domain.SideSell, 10)
	require.Len(t, depth, 2)
	assert.Equal(t, int64(101), depth[0].Price)
	assert.Equal(t, int64(1), depth[0].Qty)
	assert.Equal(t, int64(102), depth[1].Price)
	assert.Equal(t, int64(4), depth[1].Qty)
}

// Scenario 5: price-time priority within one level — the earlier maker is
// matched first.
func TestScenarioPriceTimePriorityWithinLevel(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	bus := publish.NewMemoryBus()
	ex = NewExchange(ExchangeConfig{Recorder: bus, Publisher: bus, PublishThrottleMs: 0})

	_, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 5, 1))
	require.NoError(t, err)
	_, err = ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 5, 2))
	require.NoError(t, err)

	out, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 3, 9))
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, out.Status)
	require.Len(t, out.TradeIDs, 1)

	trades := bus.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, int64(1), trades[0].MakerUserID)

	engine := ex.GetEngine("BTCUSD")
	depth := engine.book.Orders(domain.SideBuy)
	require.Len(t, depth, 2)
	assert.Equal(t, int64(2), depth[0].Qty) // user 1's residual
	assert.Equal(t, int64(5), depth[1].Qty) // user 2 untouched
}

// Scenario 6: no cross, both rest.
func TestScenarioNoCross(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	out1, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 99, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, out1.Status)

	out2, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 5, 2))
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, out2.Status)

	engine := ex.GetEngine("BTCUSD")
	bids := engine.book.Snapshot(domain.SideBuy, 10)
	asks := engine.book.Snapshot(domain.SideSell, 10)
	require.Len(t, bids, 1)
	require.Len(t, asks, 1)
	assert.Equal(t, int64(99), bids[0].Price)
	assert.Equal(t, int64(100), asks[0].Price)
}

func TestBoundaryExactQtyMatchLeavesNoResidual(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	_, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 5, 1))
	require.NoError(t, err)
	out, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 5, 2))
	require.NoError(t, err)

	assert.Equal(t, StatusFilled, out.Status)
	assert.Equal(t, int64(0), out.RemainingQty)
}

func TestBoundaryOneTickWorseDoesNotCross(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	_, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 5, 1))
	require.NoError(t, err)
	out, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 99, 5, 2))
	require.NoError(t, err)

	assert.Equal(t, StatusOpen, out.Status)
	assert.Empty(t, out.TradeIDs)
}

func TestBoundaryExhaustingLiquidityRestsPartial(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	_, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 3, 1))
	require.NoError(t, err)
	out, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 10, 2))
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, out.Status)
	assert.Equal(t, int64(7), out.RemainingQty)

	engine := ex.GetEngine("BTCUSD")
	assert.Empty(t, engine.book.Snapshot(domain.SideSell, 10))
}

func TestRoundTripOpenThenOppositeFillsExactly(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	out1, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 5, 1))
	require.NoError(t, err)
	require.Equal(t, StatusOpen, out1.Status)

	out2, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 5, 2))
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, out2.Status)
	assert.Len(t, out2.TradeIDs, 1)
}

func TestSplittingAnOrderProducesTheSameTrades(t *testing.T) {
	ctx := context.Background()

	whole := newTestExchange()
	_, err := whole.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 10, 1))
	require.NoError(t, err)
	wholeOut, err := whole.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 10, 2))
	require.NoError(t, err)

	split := newTestExchange()
	_, err = split.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 10, 1))
	require.NoError(t, err)
	out1, err := split.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 4, 2))
	require.NoError(t, err)
	out2, err := split.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 6, 2))
	require.NoError(t, err)

	assert.Equal(t, StatusFilled, wholeOut.Status)
	assert.Equal(t, StatusFilled, out1.Status)
	assert.Equal(t, StatusFilled, out2.Status)
	// Same trades up to aggregation: one 10-lot fill versus a 4-lot and a
	// 6-lot fill, all at price 100.
	tradedQtyAt := func(ex *Exchange, price int64) int64 {
		var total int64
		for _, tr := range ex.cfg.Recorder.(*publish.MemoryBus).Trades() {
			if tr.Price == price {
				total += tr.Qty
			}
		}
		return total
	}
	assert.Equal(t, tradedQtyAt(whole, 100), tradedQtyAt(split, 100))
}

func TestValidationRejectsWithoutMutatingState(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	out, err := ex.Submit(ctx, "BTCUSD", SubmitRequest{OrderType: domain.OrderTypeLimit, Side: domain.SideBuy, Price: 0, Qty: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, domain.ErrInvalidPrice, out.ErrorCode)

	out, err = ex.Submit(ctx, "BTCUSD", SubmitRequest{OrderType: domain.OrderTypeLimit, Side: domain.SideBuy, Price: 100, Qty: 0})
	require.NoError(t, err)
	assert.Equal(t, domain.ErrInvalidQuantity, out.ErrorCode)

	out, err = ex.Submit(ctx, "BTCUSD", SubmitRequest{OrderType: domain.OrderTypeLimit, Side: domain.Side(99), Price: 100, Qty: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.ErrInvalidSide, out.ErrorCode)

	out, err = ex.Submit(ctx, "BTCUSD", SubmitRequest{OrderType: domain.OrderTypeMarket, Side: domain.SideBuy, Price: 100, Qty: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.ErrNotImplemented, out.ErrorCode)

	out, err = ex.Submit(ctx, "BTCUSD", SubmitRequest{OrderType: domain.OrderType(99), Side: domain.SideBuy, Price: 100, Qty: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.ErrInvalidOrderType, out.ErrorCode)

	engine := ex.GetEngine("BTCUSD")
	assert.Equal(t, 0, engine.book.Size())
}

func TestDifferentSymbolsAreIndependent(t *testing.T) {
	ex := newTestExchange()
	ctx := context.Background()

	_, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 5, 1))
	require.NoError(t, err)

	ethEngine := ex.GetEngine("ETHUSD")
	assert.Equal(t, 0, ethEngine.book.Size())

	btcEngine := ex.GetEngine("BTCUSD")
	assert.Equal(t, 1, btcEngine.book.Size())
}

func TestShardedIndexKindProducesTheSameOutcomes(t *testing.T) {
	ex := NewExchange(ExchangeConfig{IndexKind: orderbook.ShardedIndex, PublishThrottleMs: 0})
	ctx := context.Background()

	_, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideSell, 100, 5, 1))
	require.NoError(t, err)
	out, err := ex.Submit(ctx, "BTCUSD", limitOrder(domain.SideBuy, 100, 5, 2))
	require.NoError(t, err)

	assert.Equal(t, StatusFilled, out.Status)
}
