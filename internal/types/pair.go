package types

import (
	"fmt"
	"strings"
)

// TradingPair identifies one tradable instrument, e.g. BTC/USD.
// Identity is ordered: BTC/USD and USD/BTC are different markets.
type TradingPair struct {
	Base  string
	Quote string
}

// NewTradingPair normalizes both symbols to trimmed upper case.
func NewTradingPair(base, quote string) (TradingPair, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || quote == "" {
		return TradingPair{}, fmt.Errorf("%w: base and quote symbols are required", ErrInvalidTradingPair)
	}
	if strings.Contains(base, "/") || strings.Contains(quote, "/") {
		return TradingPair{}, fmt.Errorf("%w: symbols may not contain '/'", ErrInvalidTradingPair)
	}
	return TradingPair{Base: base, Quote: quote}, nil
}

// ParseTradingPair parses the BASE/QUOTE form.
func ParseTradingPair(s string) (TradingPair, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok {
		return TradingPair{}, fmt.Errorf("%w: %q is not BASE/QUOTE", ErrInvalidTradingPair, s)
	}
	return NewTradingPair(base, quote)
}

// MustParseTradingPair is ParseTradingPair that panics on error.
func MustParseTradingPair(s string) TradingPair {
	p, err := ParseTradingPair(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p TradingPair) String() string { return p.Base + "/" + p.Quote }

func (p TradingPair) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *TradingPair) UnmarshalText(text []byte) error {
	parsed, err := ParseTradingPair(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
