package types

import "github.com/shopspring/decimal"

// RestingOrder is one entry of a price level snapshot, in priority order.
type RestingOrder struct {
	OrderID   string          `json:"order_id"`
	TraderID  string          `json:"trader_id"`
	Remaining decimal.Decimal `json:"remaining"`
}

// LevelSnapshot is a copy of a single price level.
type LevelSnapshot struct {
	Price       Price           `json:"price"`
	Side        Side            `json:"side"`
	TotalVolume decimal.Decimal `json:"total_volume"`
	Orders      []RestingOrder  `json:"orders"`
}

// DepthLevel is an aggregated price level.
type DepthLevel struct {
	Price      Price           `json:"price"`
	Volume     decimal.Decimal `json:"volume"`
	OrderCount int             `json:"order_count"`
}

// BookSnapshot is an aggregated view of both sides, best price first.
type BookSnapshot struct {
	Pair TradingPair  `json:"pair"`
	Bids []DepthLevel `json:"bids"`
	Asks []DepthLevel `json:"asks"`
}
