package publish

import (
	"context"
	"testing"

	"github.com/lightningex/matchingengine/domain"
	"github.com/lightningex/matchingengine/orderbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusRecordTradeAppendsLogAndPublishes(t *testing.T) {
	bus := NewMemoryBus()
	sub := bus.Subscribe()
	defer sub.Close()

	maker := domain.NewOrder("maker1", 1, domain.SideSell, 100, 10, 1000, 0)
	tradeID, err := bus.RecordTrade(context.Background(), "BTCUSD", maker, "taker1", 2, 100, 5, 1000)
	require.NoError(t, err)
	assert.NotEmpty(t, tradeID)

	trades := bus.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, tradeID, trades[0].TradeID)
	assert.Equal(t, "maker1", trades[0].MakerOrderID)
	assert.Equal(t, "taker1", trades[0].TakerOrderID)

	event := sub.Receive()
	assert.Equal(t, "trades:BTCUSD", event.Channel)
	assert.Equal(t, "100,5,1000", event.Payload)
}

func TestMemoryBusPublishOrderBookRendersBothSides(t *testing.T) {
	bus := NewMemoryBus()
	sub := bus.Subscribe()
	defer sub.Close()

	bids := []orderbook.PriceLevel{{Price: 99, Qty: 10}, {Price: 98, Qty: 5}}
	asks := []orderbook.PriceLevel{{Price: 101, Qty: 7}}

	require.NoError(t, bus.PublishOrderBook(context.Background(), "BTCUSD", bids, asks))

	event := sub.Receive()
	assert.Equal(t, "orderbook:BTCUSD", event.Channel)
	assert.Equal(t, "99,10|98,5\n101,7", event.Payload)
}

func TestMemoryBusClosedSubscriptionDoesNotReceive(t *testing.T) {
	bus := NewMemoryBus()
	sub := bus.Subscribe()
	sub.Close()

	maker := domain.NewOrder("maker1", 1, domain.SideSell, 100, 10, 1000, 0)
	_, err := bus.RecordTrade(context.Background(), "BTCUSD", maker, "taker1", 2, 100, 5, 1000)
	require.NoError(t, err)

	// Nothing was queued into the closed subscription's ring buffer.
	assert.Equal(t, int64(0), sub.rb.writeSeq.Load())

	// A second, still-open subscriber still receives events.
	sub2 := bus.Subscribe()
	defer sub2.Close()

	maker2 := domain.NewOrder("maker2", 1, domain.SideSell, 100, 10, 1000, 0)
	_, err = bus.RecordTrade(context.Background(), "BTCUSD", maker2, "taker2", 2, 100, 5, 1000)
	require.NoError(t, err)

	event := sub2.Receive()
	assert.Equal(t, "trades:BTCUSD", event.Channel)
}

func TestRingBufferDropsWhenFull(t *testing.T) {
	rb := newRingBuffer(2)
	assert.True(t, rb.TryPublish(message{channel: "a", payload: "1"}))
	assert.True(t, rb.TryPublish(message{channel: "a", payload: "2"}))
	assert.False(t, rb.TryPublish(message{channel: "a", payload: "3"}), "expected the third publish to drop once the buffer is full")

	first := rb.Consume()
	assert.Equal(t, "1", first.payload)
	second := rb.Consume()
	assert.Equal(t, "2", second.payload)
}
