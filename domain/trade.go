package domain

// Trade is an immutable record of one match between a resting maker order
// and an incoming taker order. Price is always the maker's resting price,
// never the taker's — this is the source of price improvement for
// aggressive orders. Trades are append-only once recorded.
type Trade struct {
	TradeID      string
	MakerOrderID string
	MakerUserID  int64
	TakerOrderID string
	TakerUserID  int64
	Price        int64
	Qty          int64
	Timestamp    int64
}

// NewTrade builds a Trade from a maker order and the taker side of a fill.
// The caller supplies price and qty explicitly because the maker order's
// own Qty has usually already been decremented by the time the trade
// record is built.
func NewTrade(tradeID string, maker *Order, takerOrderID string, takerUserID, price, qty, timestampMs int64) *Trade {
	return &Trade{
		TradeID:      tradeID,
		MakerOrderID: maker.OrderID,
		MakerUserID:  maker.UserID,
		TakerOrderID: takerOrderID,
		TakerUserID:  takerUserID,
		Price:        price,
		Qty:          qty,
		Timestamp:    timestampMs,
	}
}
