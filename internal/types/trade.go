package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is one match between a resting (maker) order and an incoming
// (taker) order. It always executes at the maker's price.
type Fill struct {
	Sequence      uint64          `json:"sequence"`
	Pair          TradingPair     `json:"pair"`
	MakerOrderID  string          `json:"maker_order_id"`
	TakerOrderID  string          `json:"taker_order_id"`
	MakerTraderID string          `json:"maker_trader_id"`
	TakerTraderID string          `json:"taker_trader_id"`
	TakerSide     Side            `json:"taker_side"`
	Price         Price           `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	Timestamp     time.Time       `json:"timestamp"`
}

// SumQuantity adds up the quantity of fills.
func SumQuantity(fills []Fill) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fills {
		total = total.Add(f.Quantity)
	}
	return total
}
