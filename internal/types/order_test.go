package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// TestNewOrder tests construction and validation of limit orders
func TestNewOrder(t *testing.T) {
	price := MustParsePrice("100")

	t.Run("Valid", func(t *testing.T) {
		o, err := NewOrder("alice", Bid, price, dec("10"))
		require.NoError(t, err)
		assert.NotEmpty(t, o.ID)
		assert.Equal(t, LimitOrder, o.Kind)
		assert.True(t, o.RemainingSize().Equal(dec("10")))
		assert.True(t, o.FilledSize().IsZero())
		assert.False(t, o.IsFilled())
	})

	t.Run("ZeroSize", func(t *testing.T) {
		_, err := NewOrder("alice", Bid, price, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidOrderSize)
	})

	t.Run("NegativeSize", func(t *testing.T) {
		_, err := NewOrder("alice", Ask, price, dec("-1"))
		assert.ErrorIs(t, err, ErrInvalidOrderSize)
	})

	t.Run("InvalidSide", func(t *testing.T) {
		_, err := NewOrder("alice", Side(9), price, dec("1"))
		assert.ErrorIs(t, err, ErrInvalidSide)
	})

	t.Run("MissingTrader", func(t *testing.T) {
		_, err := NewOrder("  ", Bid, price, dec("1"))
		assert.ErrorIs(t, err, ErrInvalidTrader)
	})
}

func TestOrderIdentityIsUnique(t *testing.T) {
	a, err := NewMarketOrder("alice", Bid, dec("1"))
	require.NoError(t, err)
	b, err := NewMarketOrder("alice", Bid, dec("1"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, a.Sequence, b.Sequence)
	assert.Equal(t, MarketOrder, a.Kind)
	assert.True(t, a.Price.IsZero())
}

// TestOrderReduceBy tests partial and full fills and overfill protection
func TestOrderReduceBy(t *testing.T) {
	o, err := NewOrder("alice", Ask, MustParsePrice("10"), dec("100"))
	require.NoError(t, err)

	require.NoError(t, o.ReduceBy(dec("80")))
	assert.True(t, o.RemainingSize().Equal(dec("20")))
	assert.True(t, o.FilledSize().Equal(dec("80")))

	err = o.ReduceBy(dec("20.5"))
	assert.ErrorIs(t, err, ErrOverfill)
	assert.True(t, o.RemainingSize().Equal(dec("20")), "failed reduction must not change the order")

	assert.ErrorIs(t, o.ReduceBy(dec("-1")), ErrOverfill)

	require.NoError(t, o.ReduceBy(dec("20")))
	assert.True(t, o.IsFilled())
}

func TestSumQuantity(t *testing.T) {
	fills := []Fill{{Quantity: dec("1.5")}, {Quantity: dec("2.25")}}
	assert.True(t, SumQuantity(fills).Equal(dec("3.75")))
	assert.True(t, SumQuantity(nil).IsZero())
}
