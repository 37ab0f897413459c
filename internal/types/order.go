package types

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderKind distinguishes limit orders, which may rest, from market orders,
// which never do.
type OrderKind uint8

const (
	LimitOrder OrderKind = iota + 1
	MarketOrder
)

func (k OrderKind) String() string {
	switch k {
	case LimitOrder:
		return "limit"
	case MarketOrder:
		return "market"
	}
	return "unknown"
}

// orderSeq hands out creation sequence numbers across every book in the process.
var orderSeq atomic.Uint64

// OrderRequest is what a caller supplies when placing an order. The engine
// turns it into an Order once the market and price are known.
type OrderRequest struct {
	TraderID string
	Side     Side
	Size     decimal.Decimal
}

// Order is a request to buy or sell. Identity fields never change after
// construction; only the remaining size shrinks as the order fills.
type Order struct {
	ID        string
	TraderID  string
	Side      Side
	Kind      OrderKind
	Price     Price // zero for market orders
	Quantity  decimal.Decimal
	CreatedAt time.Time
	Sequence  uint64

	remaining decimal.Decimal
}

// NewOrder creates a limit order for size at price.
func NewOrder(traderID string, side Side, price Price, size decimal.Decimal) (*Order, error) {
	return newOrder(traderID, side, LimitOrder, price, size)
}

// NewMarketOrder creates an order that takes whatever the opposite side offers.
func NewMarketOrder(traderID string, side Side, size decimal.Decimal) (*Order, error) {
	return newOrder(traderID, side, MarketOrder, Price{}, size)
}

func newOrder(traderID string, side Side, kind OrderKind, price Price, size decimal.Decimal) (*Order, error) {
	if strings.TrimSpace(traderID) == "" {
		return nil, ErrInvalidTrader
	}
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	if !size.IsPositive() {
		return nil, fmt.Errorf("%w: %s must be positive", ErrInvalidOrderSize, size.String())
	}

	return &Order{
		ID:        uuid.NewString(),
		TraderID:  traderID,
		Side:      side,
		Kind:      kind,
		Price:     price,
		Quantity:  size,
		CreatedAt: time.Now(),
		Sequence:  orderSeq.Add(1),
		remaining: size,
	}, nil
}

func (o *Order) RemainingSize() decimal.Decimal { return o.remaining }

func (o *Order) FilledSize() decimal.Decimal { return o.Quantity.Sub(o.remaining) }

func (o *Order) IsFilled() bool { return o.remaining.IsZero() }

// ReduceBy takes amount off the remaining size.
func (o *Order) ReduceBy(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative reduction %s", ErrOverfill, amount.String())
	}
	if amount.GreaterThan(o.remaining) {
		return fmt.Errorf("%w: order %s has %s left, asked for %s",
			ErrOverfill, o.ID, o.remaining.String(), amount.String())
	}
	o.remaining = o.remaining.Sub(amount)
	return nil
}

func (o *Order) String() string {
	return fmt.Sprintf("Order{ID=%s, Trader=%s, %s %s, Price=%s, Remaining=%s/%s}",
		o.ID, o.TraderID, o.Kind, o.Side, o.Price, o.remaining.String(), o.Quantity.String())
}
