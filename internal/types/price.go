package types

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// PriceScale is the denominator of Price.fractional.
	PriceScale uint64 = 1_000_000
	// PricePrecision is the number of decimal places PriceScale represents.
	PricePrecision int32 = 6
)

// Price is an exact fixed-point price. The zero value is a price of 0.
//
// Price is comparable and is used directly as a map key by the order book,
// so two prices that print the same always hash the same.
type Price struct {
	integral   uint64
	fractional uint64 // numerator over PriceScale, always < PriceScale
}

// NewPrice builds a price from its integral part and a fractional numerator
// over PriceScale.
func NewPrice(integral, fractional uint64) (Price, error) {
	if fractional >= PriceScale {
		return Price{}, fmt.Errorf("%w: fractional part %d must be below %d", ErrInvalidPrice, fractional, PriceScale)
	}
	return Price{integral: integral, fractional: fractional}, nil
}

// PriceFromDecimal converts d to a Price, truncating any digits beyond
// PricePrecision. Negative values are rejected.
func PriceFromDecimal(d decimal.Decimal) (Price, error) {
	if d.IsNegative() {
		return Price{}, fmt.Errorf("%w: %s is negative", ErrInvalidPrice, d.String())
	}

	whole := d.Truncate(0)
	wholeInt := whole.BigInt()
	if !wholeInt.IsUint64() {
		return Price{}, fmt.Errorf("%w: %s overflows", ErrInvalidPrice, d.String())
	}

	frac := d.Sub(whole).Shift(PricePrecision).Truncate(0)
	return Price{
		integral:   wholeInt.Uint64(),
		fractional: uint64(frac.IntPart()),
	}, nil
}

// PriceFromFloat converts f through its shortest decimal representation,
// so 5.5 becomes exactly 5.500000.
func PriceFromFloat(f float64) (Price, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Price{}, fmt.Errorf("%w: %v", ErrInvalidPrice, f)
	}
	return PriceFromDecimal(decimal.NewFromFloat(f))
}

// ParsePrice parses a decimal string such as "101.25".
func ParsePrice(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("%w: %q: %v", ErrInvalidPrice, s, err)
	}
	return PriceFromDecimal(d)
}

// MustParsePrice is ParsePrice that panics on error. Intended for tests and
// static tables.
func MustParsePrice(s string) Price {
	p, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Price) Integral() uint64   { return p.integral }
func (p Price) Fractional() uint64 { return p.fractional }
func (p Price) IsZero() bool       { return p.integral == 0 && p.fractional == 0 }

// Decimal returns the exact value integral + fractional/PriceScale.
func (p Price) Decimal() decimal.Decimal {
	whole := decimal.NewFromBigInt(new(big.Int).SetUint64(p.integral), 0)
	frac := decimal.NewFromBigInt(new(big.Int).SetUint64(p.fractional), -PricePrecision)
	return whole.Add(frac)
}

// Float64 is lossy and only meant for display and metrics.
func (p Price) Float64() float64 {
	return float64(p.integral) + float64(p.fractional)/float64(PriceScale)
}

// Cmp returns -1, 0 or +1 comparing integral parts first.
func (p Price) Cmp(q Price) int {
	switch {
	case p.integral < q.integral:
		return -1
	case p.integral > q.integral:
		return 1
	case p.fractional < q.fractional:
		return -1
	case p.fractional > q.fractional:
		return 1
	}
	return 0
}

func (p Price) Less(q Price) bool  { return p.Cmp(q) < 0 }
func (p Price) Equal(q Price) bool { return p == q }

func (p Price) String() string {
	return p.Decimal().StringFixed(PricePrecision)
}

func (p Price) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Price) UnmarshalText(text []byte) error {
	parsed, err := ParsePrice(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
