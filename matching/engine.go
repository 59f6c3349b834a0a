// Package matching implements the core matching engine: one Engine per
// symbol, each owning its own order book, sequence allocator and publish
// throttle state behind a single mutex, and an Exchange that lazily
// creates and routes to those per-symbol engines. Submit is a single
// synchronous, mutex-guarded call: one order submission is one
// indivisible state transition (see DESIGN.md for the rationale behind
// this over a goroutine-per-symbol channel pipeline).
package matching

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lightningex/matchingengine/domain"
	"github.com/lightningex/matchingengine/metrics"
	"github.com/lightningex/matchingengine/orderbook"
	"github.com/lightningex/matchingengine/publish"
	"github.com/lightningex/matchingengine/sequence"
)

// Clock returns the current time in epoch milliseconds. It is injectable
// so tests can drive deterministic timestamps; production code uses
// defaultClock.
type Clock func() int64

func defaultClock() int64 { return time.Now().UnixMilli() }

// DefaultPublishThrottleMs is the minimum interval between order-book
// snapshot publishes for one symbol.
const DefaultPublishThrottleMs int64 = 50

// Status classifies the result of a Submit call.
type Status int

const (
	StatusError Status = iota
	StatusOpen
	StatusPartial
	StatusFilled
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusOpen:
		return "open"
	case StatusPartial:
		return "partial"
	case StatusFilled:
		return "filled"
	default:
		return "unknown"
	}
}

// SubmitRequest is the caller-supplied intent for one order submission.
type SubmitRequest struct {
	OrderType domain.OrderType
	UserID    int64
	Side      domain.Side
	Price     int64
	Qty       int64
}

// Outcome is the result of a Submit call. ErrorCode is populated only when
// Status is StatusError; OrderID, RemainingQty and TradeIDs otherwise
// describe what happened to the submitted order.
type Outcome struct {
	Status       Status
	ErrorCode    domain.ErrorCode
	OrderID      string
	RemainingQty int64
	TradeIDs     []string
}

// Engine is the matching engine for a single symbol. All of Engine's
// exported behavior goes through Submit, which holds mu for its entire
// duration so no caller ever observes a half-applied match.
type Engine struct {
	symbol            string
	book              *orderbook.Book
	seq               *sequence.Allocator
	recorder          publish.Recorder
	publisher         publish.Publisher
	clock             Clock
	publishThrottleMs int64
	logger            *zap.Logger
	metrics           *metrics.Metrics

	mu            sync.Mutex
	lastPublishMs int64
}

// NewEngine constructs an Engine for symbol. A nil clock defaults to
// wall-clock time; a nil logger defaults to a no-op logger. A nil
// metrics collector disables instrumentation entirely.
func NewEngine(symbol string, indexKind orderbook.IndexKind, recorder publish.Recorder, publisher publish.Publisher, clock Clock, publishThrottleMs int64, logger *zap.Logger, m *metrics.Metrics) *Engine {
	if clock == nil {
		clock = defaultClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		symbol:            symbol,
		book:              orderbook.NewBookWithIndex(symbol, indexKind),
		seq:               sequence.NewAllocator(),
		recorder:          recorder,
		publisher:         publisher,
		clock:             clock,
		publishThrottleMs: publishThrottleMs,
		logger:            logger,
		metrics:           m,
	}
}

// Submit validates and processes one order submission against this
// symbol's book: it walks the opposite side generating trades until the
// incoming order is exhausted or no crossing price exists, then rests
// any residual on the caller's own side.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (Outcome, error) {
	if code, ok := validate(req); !ok {
		if e.metrics != nil {
			e.metrics.RecordRejection(string(code))
		}
		return Outcome{Status: StatusError, ErrorCode: code}, nil
	}

	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.clock()
	orderID := e.seq.NextOrderID(t)
	sideSeq := e.seq.NextSideSequence(req.Side)

	remaining := req.Qty
	var tradeIDs []string
	opposite := req.Side.Opposite()

	for remaining > 0 {
		makerID, makerPrice, ok := e.book.PeekBest(opposite)
		if !ok {
			break
		}

		if req.Side == domain.SideBuy && makerPrice > req.Price {
			break
		}
		if req.Side == domain.SideSell && makerPrice < req.Price {
			break
		}

		makerOrder, ok := e.book.Lookup(makerID)
		if !ok {
			return Outcome{}, domain.NewStateError(e.symbol, makerID, "best-price order missing from order map")
		}

		tradeQty := min(remaining, makerOrder.Qty)

		tradeID, err := e.recorder.RecordTrade(ctx, e.symbol, makerOrder, orderID, req.UserID, makerPrice, tradeQty, t)
		if err != nil {
			e.logger.Warn("matching: trade recording failed, continuing with in-memory state",
				zap.String("symbol", e.symbol), zap.String("maker_order_id", makerID), zap.Error(err))
		}
		tradeIDs = append(tradeIDs, tradeID)

		if makerOrder.Qty > tradeQty {
			if err := e.book.DecrementQty(makerID, tradeQty); err != nil {
				return Outcome{}, fmt.Errorf("matching: decrementing maker %q: %w", makerID, err)
			}
			remaining = 0
		} else {
			if _, ok := e.book.PopBest(opposite); !ok {
				return Outcome{}, domain.NewStateError(e.symbol, makerID, "best-price order vanished during pop")
			}
			remaining -= tradeQty
		}
	}

	if remaining > 0 {
		resting := domain.NewOrder(orderID, req.UserID, req.Side, req.Price, remaining, t, sideSeq)
		if err := e.book.Insert(resting); err != nil {
			return Outcome{}, fmt.Errorf("matching: resting residual order %q: %w", orderID, err)
		}
	}

	status := classify(tradeIDs, remaining, req.Qty)

	if t-e.lastPublishMs >= e.publishThrottleMs {
		bids := e.book.Snapshot(domain.SideBuy, 100)
		asks := e.book.Snapshot(domain.SideSell, 100)
		if err := e.publisher.PublishOrderBook(ctx, e.symbol, bids, asks); err != nil {
			e.logger.Warn("matching: order book publish failed", zap.String("symbol", e.symbol), zap.Error(err))
			if e.metrics != nil {
				e.metrics.RecordPublishFailure(e.symbol, "book")
			}
		}
		e.lastPublishMs = t
		if e.metrics != nil {
			e.metrics.SetBookDepth(e.symbol, "buy", len(bids))
			e.metrics.SetBookDepth(e.symbol, "sell", len(asks))
		}

		if mirror, ok := e.publisher.(publish.BookMirror); ok {
			counters := publish.BookCounters{
				OrderSeq:      e.seq.OrderSeq(),
				BuySeq:        e.seq.BuySeq(),
				SellSeq:       e.seq.SellSeq(),
				LastPublishMs: t,
			}
			if err := mirror.MirrorBook(ctx, e.symbol, e.book.Orders(domain.SideBuy), e.book.Orders(domain.SideSell), counters); err != nil {
				e.logger.Warn("matching: order book mirror failed", zap.String("symbol", e.symbol), zap.Error(err))
				if e.metrics != nil {
					e.metrics.RecordPublishFailure(e.symbol, "mirror")
				}
			}
		}
	}

	if e.metrics != nil {
		e.metrics.RecordSubmit(e.symbol, status.String(), time.Since(start).Seconds())
		e.metrics.RecordTrades(e.symbol, len(tradeIDs))
	}

	return Outcome{
		Status:       status,
		OrderID:      orderID,
		RemainingQty: remaining,
		TradeIDs:     tradeIDs,
	}, nil
}

func classify(tradeIDs []string, remaining, requestedQty int64) Status {
	switch {
	case remaining == 0:
		return StatusFilled
	case len(tradeIDs) == 0 && remaining == requestedQty:
		return StatusOpen
	default:
		return StatusPartial
	}
}

func validate(req SubmitRequest) (domain.ErrorCode, bool) {
	switch req.OrderType {
	case domain.OrderTypeLimit:
	case domain.OrderTypeMarket:
		return domain.ErrNotImplemented, false
	default:
		return domain.ErrInvalidOrderType, false
	}

	if req.Side != domain.SideBuy && req.Side != domain.SideSell {
		return domain.ErrInvalidSide, false
	}
	if req.Price <= 0 {
		return domain.ErrInvalidPrice, false
	}
	if req.Qty <= 0 {
		return domain.ErrInvalidQuantity, false
	}
	return "", true
}

func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
