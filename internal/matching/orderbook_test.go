package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/limit-matching-engine/internal/types"
)

// TestOrderBookTraversalOrder tests best-first ordering on both sides
func TestOrderBookTraversalOrder(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)
	for _, p := range []string{"101", "99", "100"} {
		rest(t, ob, newLimit(t, "maker", types.Ask, p, "1"))
		rest(t, ob, newLimit(t, "maker", types.Bid, p, "1"))
	}

	assert.Equal(t, []types.Price{px("99"), px("100"), px("101")}, ob.Prices(types.Ask))
	assert.Equal(t, []types.Price{px("101"), px("100"), px("99")}, ob.Prices(types.Bid))
	requireConsistent(t, ob)
}

// TestOrderBookMarketOrderSweep tests a market order walking several levels
func TestOrderBookMarketOrderSweep(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)
	rest(t, ob,
		newLimit(t, "a", types.Ask, "101", "5"),
		newLimit(t, "b", types.Ask, "99", "2"),
		newLimit(t, "c", types.Ask, "100", "3"),
	)

	incoming := newMarket(t, "taker", types.Bid, "6")
	fills := ob.MatchMarketOrder(incoming)

	require.Len(t, fills, 3)
	assert.Equal(t, px("99"), fills[0].Price)
	assert.Equal(t, px("100"), fills[1].Price)
	assert.Equal(t, px("101"), fills[2].Price)
	assert.True(t, fills[2].Quantity.Equal(dec("1")))
	assert.True(t, incoming.IsFilled())

	// emptied levels are gone from both map and index
	assert.Equal(t, []types.Price{px("101")}, ob.Prices(types.Ask))
	assert.Equal(t, 1, ob.LevelCount(types.Ask))
	requireConsistent(t, ob)
}

func TestOrderBookMarketOrderExhaustsBook(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)
	rest(t, ob, newLimit(t, "a", types.Bid, "50", "1"))

	incoming := newMarket(t, "taker", types.Ask, "3")
	fills := ob.MatchMarketOrder(incoming)

	require.Len(t, fills, 1)
	assert.True(t, incoming.RemainingSize().Equal(dec("2")))
	_, ok := ob.BestPrice(types.Bid)
	assert.False(t, ok)
	_, ok = ob.BestPrice(types.Ask)
	assert.False(t, ok, "market remainder never rests")
}

// TestOrderBookFillsAreStamped tests pair and timestamp on emitted fills
func TestOrderBookFillsAreStamped(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ob.now = func() time.Time { return at }

	maker := newLimit(t, "alison", types.Bid, "5.5", "1")
	rest(t, ob, maker)

	fills := ob.MatchMarketOrder(newMarket(t, "duncan", types.Ask, "1"))
	require.Len(t, fills, 1)
	assert.Equal(t, btcUSD, fills[0].Pair)
	assert.Equal(t, at, fills[0].Timestamp)
	assert.Equal(t, "alison", fills[0].MakerTraderID)
	assert.Equal(t, "duncan", fills[0].TakerTraderID)

	_, ok := ob.Order(maker.ID)
	assert.False(t, ok, "filled maker leaves the index")
}

// TestOrderBookLimitCrossing tests the default limit policy
func TestOrderBookLimitCrossing(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)
	rest(t, ob,
		newLimit(t, "a", types.Ask, "100", "3"),
		newLimit(t, "b", types.Ask, "101", "3"),
	)

	incoming := newLimit(t, "taker", types.Bid, "100.5", "5")
	fills, err := ob.MatchLimitOrder(incoming)
	require.NoError(t, err)

	require.Len(t, fills, 1)
	assert.Equal(t, px("100"), fills[0].Price, "fills execute at the maker price")
	assert.True(t, fills[0].Quantity.Equal(dec("3")))

	bestBid, ok := ob.BestPrice(types.Bid)
	require.True(t, ok)
	assert.Equal(t, px("100.5"), bestBid)
	bestAsk, ok := ob.BestPrice(types.Ask)
	require.True(t, ok)
	assert.Equal(t, px("101"), bestAsk)

	rested, ok := ob.Order(incoming.ID)
	require.True(t, ok)
	assert.True(t, rested.RemainingSize().Equal(dec("2")))
	requireConsistent(t, ob)
}

func TestOrderBookLimitCrossingSweepsUpToLimit(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)
	rest(t, ob,
		newLimit(t, "a", types.Bid, "100", "1"),
		newLimit(t, "b", types.Bid, "99", "1"),
		newLimit(t, "c", types.Bid, "98", "1"),
	)

	incoming := newLimit(t, "taker", types.Ask, "99", "5")
	fills, err := ob.MatchLimitOrder(incoming)
	require.NoError(t, err)

	require.Len(t, fills, 2)
	assert.Equal(t, px("100"), fills[0].Price)
	assert.Equal(t, px("99"), fills[1].Price)

	bestAsk, ok := ob.BestPrice(types.Ask)
	require.True(t, ok)
	assert.Equal(t, px("99"), bestAsk)
	bestBid, ok := ob.BestPrice(types.Bid)
	require.True(t, ok)
	assert.Equal(t, px("98"), bestBid)
}

// TestOrderBookLimitExactPrice tests the exact-price limit policy
func TestOrderBookLimitExactPrice(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchExactPrice)
	rest(t, ob,
		newLimit(t, "a", types.Ask, "100", "3"),
		newLimit(t, "b", types.Ask, "101", "3"),
	)

	// better-priced liquidity at 100 is ignored under the exact policy
	incoming := newLimit(t, "taker", types.Bid, "101", "5")
	fills, err := ob.MatchLimitOrder(incoming)
	require.NoError(t, err)

	require.Len(t, fills, 1)
	assert.Equal(t, px("101"), fills[0].Price)
	assert.True(t, fills[0].Quantity.Equal(dec("3")))

	snap, ok := ob.PriceLevelSnapshot(px("101"), types.Bid)
	require.True(t, ok)
	assert.True(t, snap.TotalVolume.Equal(dec("2")))

	noMatch := newLimit(t, "taker", types.Bid, "100.5", "1")
	fills, err = ob.MatchLimitOrder(noMatch)
	require.NoError(t, err)
	assert.Empty(t, fills)
	_, ok = ob.Order(noMatch.ID)
	assert.True(t, ok)
}

// TestOrderBookCancel tests cancellation by trader and by ID
func TestOrderBookCancel(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)
	first := newLimit(t, "alice", types.Bid, "100", "1")
	other := newLimit(t, "bob", types.Bid, "100", "2")
	second := newLimit(t, "alice", types.Bid, "100", "3")
	lone := newLimit(t, "carol", types.Bid, "99", "4")
	rest(t, ob, first, other, second, lone)

	t.Run("OldestForTrader", func(t *testing.T) {
		removed, err := ob.CancelOrder(px("100"), types.Bid, "alice")
		require.NoError(t, err)
		assert.Equal(t, first.ID, removed.ID)

		snap, ok := ob.PriceLevelSnapshot(px("100"), types.Bid)
		require.True(t, ok)
		require.Len(t, snap.Orders, 2)
		assert.Equal(t, other.ID, snap.Orders[0].OrderID)
		assert.Equal(t, second.ID, snap.Orders[1].OrderID)
	})

	t.Run("UnknownTrader", func(t *testing.T) {
		_, err := ob.CancelOrder(px("100"), types.Bid, "mallory")
		assert.ErrorIs(t, err, types.ErrOrderNotFound)
	})

	t.Run("UnknownLevel", func(t *testing.T) {
		_, err := ob.CancelOrder(px("100"), types.Ask, "alice")
		assert.ErrorIs(t, err, types.ErrOrderNotFound)
	})

	t.Run("ByIDRemovesEmptyLevel", func(t *testing.T) {
		removed, err := ob.CancelOrderByID(lone.ID)
		require.NoError(t, err)
		assert.Equal(t, lone.ID, removed.ID)
		assert.Equal(t, []types.Price{px("100")}, ob.Prices(types.Bid))

		_, err = ob.CancelOrderByID(lone.ID)
		assert.ErrorIs(t, err, types.ErrOrderNotFound)
	})

	requireConsistent(t, ob)
}

func TestOrderBookRemovePriceLevel(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)
	a := newLimit(t, "a", types.Ask, "10", "1")
	rest(t, ob, a, newLimit(t, "b", types.Ask, "10", "2"), newLimit(t, "c", types.Ask, "11", "1"))

	level, ok := ob.RemovePriceLevel(px("10"), types.Ask)
	require.True(t, ok)
	assert.Equal(t, 2, level.Len())
	_, ok = ob.Order(a.ID)
	assert.False(t, ok)

	_, ok = ob.RemovePriceLevel(px("10"), types.Ask)
	assert.False(t, ok)
	assert.Equal(t, []types.Price{px("11")}, ob.Prices(types.Ask))
	requireConsistent(t, ob)
}

func TestOrderBookAddRestingRejects(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)

	err := ob.AddRestingOrder(newMarket(t, "a", types.Bid, "1"))
	assert.ErrorIs(t, err, types.ErrNotRestable)

	filled := newLimit(t, "a", types.Bid, "10", "1")
	require.NoError(t, filled.ReduceBy(dec("1")))
	assert.ErrorIs(t, ob.AddRestingOrder(filled), types.ErrNotRestable)

	assert.Equal(t, 0, ob.LevelCount(types.Bid))
}

func TestOrderBookSpreadAndDepth(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)
	_, ok := ob.Spread()
	assert.False(t, ok)

	rest(t, ob,
		newLimit(t, "a", types.Bid, "99.5", "1"),
		newLimit(t, "b", types.Bid, "99.5", "2"),
		newLimit(t, "c", types.Bid, "98", "1"),
		newLimit(t, "d", types.Ask, "100.25", "4"),
	)

	spread, ok := ob.Spread()
	require.True(t, ok)
	assert.True(t, spread.Equal(dec("0.75")))

	depth := ob.Depth(1)
	assert.Equal(t, btcUSD, depth.Pair)
	require.Len(t, depth.Bids, 1)
	assert.Equal(t, px("99.5"), depth.Bids[0].Price)
	assert.True(t, depth.Bids[0].Volume.Equal(dec("3")))
	assert.Equal(t, 2, depth.Bids[0].OrderCount)
	require.Len(t, depth.Asks, 1)

	assert.Len(t, ob.Depth(0).Bids, 2)
}

// TestOrderBookInvalidSide tests that a side outside Bid and Ask never
// falls through to the ask side.
func TestOrderBookInvalidSide(t *testing.T) {
	tests := []struct {
		name string
		side types.Side
	}{
		{"zero", types.Side(0)},
		{"out of range", types.Side(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob := NewOrderBook(btcUSD, MatchCrossing)
			ask := newLimit(t, "alice", types.Ask, "100", "1")
			rest(t, ob, ask)

			_, err := ob.CancelOrder(px("100"), tt.side, "alice")
			assert.ErrorIs(t, err, types.ErrInvalidSide)

			_, ok := ob.BestPrice(tt.side)
			assert.False(t, ok)
			_, ok = ob.PriceLevelSnapshot(px("100"), tt.side)
			assert.False(t, ok)
			_, ok = ob.RemovePriceLevel(px("100"), tt.side)
			assert.False(t, ok)
			assert.Zero(t, ob.LevelCount(tt.side))
			assert.Nil(t, ob.Prices(tt.side))

			incoming := newLimit(t, "bob", types.Bid, "100", "1")
			incoming.Side = tt.side
			_, err = ob.MatchLimitOrder(incoming)
			assert.ErrorIs(t, err, types.ErrInvalidSide)

			market := newMarket(t, "bob", types.Bid, "1")
			market.Side = tt.side
			assert.Empty(t, ob.MatchMarketOrder(market))

			_, ok = ob.Order(ask.ID)
			assert.True(t, ok, "the ask is untouched")
			assert.Equal(t, []types.Price{px("100")}, ob.Prices(types.Ask))
			requireConsistent(t, ob)
		})
	}
}

// TestOrderBookPlaceLimitSnapshot tests that the returned order copy does not
// follow the resting order once it is filled.
func TestOrderBookPlaceLimitSnapshot(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)

	bid := newLimit(t, "alice", types.Bid, "100", "5")
	m, err := ob.PlaceLimit(bid)
	require.NoError(t, err)
	assert.True(t, m.Rested)
	assert.Empty(t, m.Fills)

	_, err = ob.MatchLimitOrder(newLimit(t, "bob", types.Ask, "100", "5"))
	require.NoError(t, err)

	assert.True(t, bid.IsFilled(), "the resting order itself was filled")
	assert.True(t, m.Order.RemainingSize().Equal(dec("5")))
	assert.Equal(t, bid.ID, m.Order.ID)
}

// TestOrderBookStampsSequences tests that fills take sequences from the
// book's source in match order.
func TestOrderBookStampsSequences(t *testing.T) {
	ob := NewOrderBook(btcUSD, MatchCrossing)
	var next uint64 = 40
	ob.nextSeq = func() uint64 { next++; return next }

	rest(t, ob,
		newLimit(t, "a", types.Ask, "101", "1"),
		newLimit(t, "b", types.Ask, "100", "1"),
		newLimit(t, "c", types.Ask, "100", "1"),
	)
	fills := ob.MatchMarketOrder(newMarket(t, "taker", types.Bid, "3"))

	require.Len(t, fills, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{fills[0].MakerTraderID, fills[1].MakerTraderID, fills[2].MakerTraderID})
	for i, f := range fills {
		assert.Equal(t, uint64(41+i), f.Sequence)
	}
}

func TestParseMatchPolicy(t *testing.T) {
	p, err := ParseMatchPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MatchCrossing, p)

	p, err = ParseMatchPolicy("exact")
	require.NoError(t, err)
	assert.Equal(t, MatchExactPrice, p)
	assert.Equal(t, "exact", p.String())

	_, err = ParseMatchPolicy("nearest")
	assert.Error(t, err)
}
