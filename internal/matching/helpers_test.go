package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/limit-matching-engine/internal/types"
)

var btcUSD = types.TradingPair{Base: "BTC", Quote: "USD"}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func px(s string) types.Price { return types.MustParsePrice(s) }

func newLimit(t testing.TB, trader string, side types.Side, price, size string) *types.Order {
	t.Helper()
	o, err := types.NewOrder(trader, side, px(price), dec(size))
	require.NoError(t, err)
	return o
}

func newMarket(t testing.TB, trader string, side types.Side, size string) *types.Order {
	t.Helper()
	o, err := types.NewMarketOrder(trader, side, dec(size))
	require.NoError(t, err)
	return o
}

func rest(t testing.TB, ob *OrderBook, orders ...*types.Order) {
	t.Helper()
	for _, o := range orders {
		require.NoError(t, ob.AddRestingOrder(o))
	}
}

func requireConsistent(t testing.TB, ob *OrderBook) {
	t.Helper()
	require.True(t, ob.bids.consistent(), "bid index out of sync: %v", ob.bids.prices)
	require.True(t, ob.asks.consistent(), "ask index out of sync: %v", ob.asks.prices)
}
