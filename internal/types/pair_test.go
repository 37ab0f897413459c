package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradingPair(t *testing.T) {
	p, err := ParseTradingPair(" btc / usd ")
	require.NoError(t, err)
	assert.Equal(t, TradingPair{Base: "BTC", Quote: "USD"}, p)
	assert.Equal(t, "BTC/USD", p.String())

	for _, bad := range []string{"BTCUSD", "/USD", "BTC/", "A/B/C"} {
		_, err := ParseTradingPair(bad)
		assert.ErrorIs(t, err, ErrInvalidTradingPair, "input %q", bad)
	}
}

// TestTradingPairIsOrdered tests that base and quote are not interchangeable
func TestTradingPairIsOrdered(t *testing.T) {
	a := MustParseTradingPair("BTC/USD")
	b := MustParseTradingPair("USD/BTC")
	assert.NotEqual(t, a, b)

	markets := map[TradingPair]bool{a: true}
	assert.False(t, markets[b])
	assert.True(t, markets[MustParseTradingPair("btc/usd")])
}

func TestSide(t *testing.T) {
	assert.Equal(t, Ask, Bid.Opposite())
	assert.Equal(t, Bid, Ask.Opposite())
	assert.False(t, Side(0).Valid())

	for in, want := range map[string]Side{"bid": Bid, "BUY": Bid, "ask": Ask, " sell ": Ask} {
		got, err := ParseSide(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSide("hold")
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestFillJSON(t *testing.T) {
	fill := Fill{
		Sequence:  7,
		Pair:      MustParseTradingPair("ETH/USD"),
		TakerSide: Ask,
		Price:     MustParsePrice("1800.5"),
		Quantity:  dec("0.25"),
	}

	data, err := json.Marshal(fill)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pair":"ETH/USD"`)
	assert.Contains(t, string(data), `"taker_side":"ask"`)

	var out Fill
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, fill.Pair, out.Pair)
	assert.Equal(t, fill.Price, out.Price)
	assert.True(t, fill.Quantity.Equal(out.Quantity))
}
