package matching

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/PxPatel/limit-matching-engine/internal/types"
)

// PriceLevel is the FIFO queue of resting orders sharing one price on one
// side of a book. Index 0 is the oldest order and is matched first.
type PriceLevel struct {
	price  types.Price
	orders []*types.Order
}

func NewPriceLevel(price types.Price) *PriceLevel {
	return &PriceLevel{price: price}
}

func (l *PriceLevel) Price() types.Price { return l.price }
func (l *PriceLevel) Len() int           { return len(l.orders) }
func (l *PriceLevel) IsEmpty() bool      { return len(l.orders) == 0 }

// Add appends order at the tail of the queue.
func (l *PriceLevel) Add(order *types.Order) error {
	if order.Price != l.price {
		return fmt.Errorf("%w: order %s at %s, level at %s", types.ErrPriceMismatch, order.ID, order.Price, l.price)
	}
	l.orders = append(l.orders, order)
	return nil
}

// TotalVolume is the sum of remaining sizes, zero for an empty level.
func (l *PriceLevel) TotalVolume() decimal.Decimal {
	total := decimal.Zero
	for _, o := range l.orders {
		total = total.Add(o.RemainingSize())
	}
	return total
}

// Fill matches incoming against the resting orders oldest first and returns
// one fill per resting order touched. Resting orders that reach zero are
// purged before returning. Fills carry the level price; the book stamps the
// pair and time.
func (l *PriceLevel) Fill(incoming *types.Order) []types.Fill {
	var fills []types.Fill

	for _, resting := range l.orders {
		if incoming.IsFilled() {
			break
		}

		take := decimal.Min(incoming.RemainingSize(), resting.RemainingSize())
		if err := resting.ReduceBy(take); err != nil {
			panic(err)
		}
		if err := incoming.ReduceBy(take); err != nil {
			panic(err)
		}

		fills = append(fills, types.Fill{
			MakerOrderID:  resting.ID,
			TakerOrderID:  incoming.ID,
			MakerTraderID: resting.TraderID,
			TakerTraderID: incoming.TraderID,
			TakerSide:     incoming.Side,
			Price:         l.price,
			Quantity:      take,
		})
	}

	l.purgeFilled()
	return fills
}

// purgeFilled drops filled orders while keeping arrival order.
func (l *PriceLevel) purgeFilled() {
	kept := l.orders[:0]
	for _, o := range l.orders {
		if !o.IsFilled() {
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(l.orders); i++ {
		l.orders[i] = nil
	}
	l.orders = kept
}

// GetOrder returns the order at position i in priority order.
func (l *PriceLevel) GetOrder(i int) (*types.Order, bool) {
	if i < 0 || i >= len(l.orders) {
		return nil, false
	}
	return l.orders[i], true
}

// RemoveOrder removes and returns the order at position i, keeping the
// relative order of the rest.
func (l *PriceLevel) RemoveOrder(i int) (*types.Order, bool) {
	if i < 0 || i >= len(l.orders) {
		return nil, false
	}
	removed := l.orders[i]
	copy(l.orders[i:], l.orders[i+1:])
	l.orders[len(l.orders)-1] = nil
	l.orders = l.orders[:len(l.orders)-1]
	return removed, true
}

// indexOf returns the position of the first order matching fn, or -1.
func (l *PriceLevel) indexOf(fn func(*types.Order) bool) int {
	for i, o := range l.orders {
		if fn(o) {
			return i
		}
	}
	return -1
}

// Orders returns a copy of the queue in priority order.
func (l *PriceLevel) Orders() []*types.Order {
	out := make([]*types.Order, len(l.orders))
	copy(out, l.orders)
	return out
}

func (l *PriceLevel) snapshot(side types.Side) types.LevelSnapshot {
	snap := types.LevelSnapshot{
		Price:       l.price,
		Side:        side,
		TotalVolume: l.TotalVolume(),
		Orders:      make([]types.RestingOrder, 0, len(l.orders)),
	}
	for _, o := range l.orders {
		snap.Orders = append(snap.Orders, types.RestingOrder{
			OrderID:   o.ID,
			TraderID:  o.TraderID,
			Remaining: o.RemainingSize(),
		})
	}
	return snap
}

func (l *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel{Price=%s, Orders=%d, Volume=%s}", l.price, len(l.orders), l.TotalVolume().String())
}
