package publish

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lightningex/matchingengine/domain"
	"github.com/lightningex/matchingengine/orderbook"
)

const redisCallTimeout = 2 * time.Second

// RedisBus is the Redis-backed Recorder+Publisher: it does the same
// PUBLISH traffic as MemoryBus, and additionally mirrors persisted state
// (sorted-set books, hash records, string counters) so external
// dashboards can read the engine's state directly out of Redis.
type RedisBus struct {
	client     *redis.Client
	logger     *zap.Logger
	allocators *tradeAllocators
}

var _ Recorder = (*RedisBus)(nil)
var _ Publisher = (*RedisBus)(nil)
var _ BookMirror = (*RedisBus)(nil)

// NewRedisBus connects to addr and returns a RedisBus, or an error if the
// initial ping fails.
func NewRedisBus(addr string, logger *zap.Logger) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		PoolTimeout:     4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisBus{client: client, logger: logger, allocators: newTradeAllocators()}, nil
}

func (r *RedisBus) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, redisCallTimeout)
}

// RecordTrade persists the trade as a hash (trade:{trade_id}) and publishes
// it. Mirroring failures are logged, never returned: the matching engine's
// in-memory state is the source of truth.
func (r *RedisBus) RecordTrade(ctx context.Context, symbol string, maker *domain.Order, takerOrderID string, takerUserID, price, qty, timestampMs int64) (string, error) {
	tradeID := r.allocators.nextTradeID(symbol, timestampMs)
	trade := domain.NewTrade(tradeID, maker, takerOrderID, takerUserID, price, qty, timestampMs)

	cctx, cancel := r.withTimeout(ctx)
	defer cancel()

	fields := map[string]interface{}{
		"trade_id":       trade.TradeID,
		"maker_order_id": trade.MakerOrderID,
		"maker_user_id":  trade.MakerUserID,
		"taker_order_id": trade.TakerOrderID,
		"taker_user_id":  trade.TakerUserID,
		"price":          trade.Price,
		"qty":            trade.Qty,
		"timestamp":      trade.Timestamp,
	}
	if err := r.client.HSet(cctx, "trade:"+trade.TradeID, fields).Err(); err != nil {
		r.logger.Warn("redis: failed to mirror trade record", zap.String("symbol", symbol), zap.String("trade_id", trade.TradeID), zap.Error(err))
	}

	return tradeID, r.PublishTrade(ctx, symbol, trade)
}

// PublishOrderBook PUBLISHes the aggregated snapshot payload. The
// per-order persisted-state mirror (sorted sets, order hashes, sequence
// counters) is a separate, heavier operation the engine drives through
// MirrorBook, throttled on the same schedule as this publish.
func (r *RedisBus) PublishOrderBook(ctx context.Context, symbol string, bids, asks []orderbook.PriceLevel) error {
	cctx, cancel := r.withTimeout(ctx)
	defer cancel()

	payload := renderOrderBookPayload(bids, asks)
	if err := r.client.Publish(cctx, orderBookChannel(symbol), payload).Err(); err != nil {
		r.logger.Warn("redis: failed to publish order book", zap.String("symbol", symbol), zap.Error(err))
	}
	return nil
}

// MirrorBook replaces the persisted per-order book state for symbol: each
// side's sorted set (member=order_id, score=orderbook.Score(order)) and
// each resting order's order:{order_id} hash, plus the four sequence
// counters and the last-publish timestamp. It is a heavier operation than
// PublishOrderBook and is driven by the engine on the same throttle
// schedule.
func (r *RedisBus) MirrorBook(ctx context.Context, symbol string, bids, asks []*domain.Order, counters BookCounters) error {
	cctx, cancel := r.withTimeout(ctx)
	defer cancel()

	r.mirrorSide(cctx, symbol, domain.SideBuy, bids)
	r.mirrorSide(cctx, symbol, domain.SideSell, asks)

	values := map[string]string{
		"order_seq_" + symbol:         strconv.FormatUint(counters.OrderSeq, 10),
		"buy_seq_" + symbol:           strconv.FormatUint(counters.BuySeq, 10),
		"sell_seq_" + symbol:          strconv.FormatUint(counters.SellSeq, 10),
		"trade_seq_" + symbol:         strconv.FormatUint(r.allocators.currentTradeSeq(symbol), 10),
		"last_publish_time:" + symbol: strconv.FormatInt(counters.LastPublishMs, 10),
	}
	for key, value := range values {
		if err := r.client.Set(cctx, key, value, 0).Err(); err != nil {
			r.logger.Warn("redis: failed to mirror counter", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// bookKey and orderKey render the per-side sorted-set and per-order hash
// key names a dashboard reads this mirror through.
func bookKey(side domain.Side, symbol string) string {
	if side == domain.SideBuy {
		return "buy_book_" + symbol
	}
	return "sell_book_" + symbol
}

func orderKey(orderID string) string { return "order:" + orderID }

// mirrorSide replaces one side's sorted set with the current resting
// orders and writes each order's order:{order_id} hash. The side's
// sorted set is already the full resting-order state for that side, so
// it is cleared and rewritten rather than diffed.
func (r *RedisBus) mirrorSide(ctx context.Context, symbol string, side domain.Side, orders []*domain.Order) {
	key := bookKey(side, symbol)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("redis: failed to clear book mirror", zap.String("key", key), zap.Error(err))
		return
	}
	if len(orders) == 0 {
		return
	}

	members := make([]redis.Z, len(orders))
	for i, order := range orders {
		members[i] = redis.Z{Score: orderbook.Score(order), Member: order.OrderID}

		fields := map[string]interface{}{
			"order_id":  order.OrderID,
			"user_id":   order.UserID,
			"side":      order.Side.String(),
			"price":     order.Price,
			"qty":       order.Qty,
			"timestamp": order.Timestamp,
		}
		if err := r.client.HSet(ctx, orderKey(order.OrderID), fields).Err(); err != nil {
			r.logger.Warn("redis: failed to mirror order record", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}
	if err := r.client.ZAdd(ctx, key, members...).Err(); err != nil {
		r.logger.Warn("redis: failed to mirror book levels", zap.String("key", key), zap.Error(err))
	}
}

// PublishTrade publishes a single trade event.
func (r *RedisBus) PublishTrade(ctx context.Context, symbol string, trade *domain.Trade) error {
	cctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Publish(cctx, tradeChannel(symbol), renderTradePayload(trade)).Err(); err != nil {
		r.logger.Warn("redis: failed to publish trade", zap.String("symbol", symbol), zap.String("trade_id", trade.TradeID), zap.Error(err))
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (r *RedisBus) Close() error { return r.client.Close() }
