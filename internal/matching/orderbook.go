package matching

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PxPatel/limit-matching-engine/internal/types"
)

// MatchPolicy selects how an incoming limit order finds liquidity.
type MatchPolicy uint8

const (
	// MatchCrossing fills a limit order against every opposite level whose
	// price is at least as good as the limit, best first.
	MatchCrossing MatchPolicy = iota
	// MatchExactPrice fills a limit order only against the opposite level
	// at exactly the limit price.
	MatchExactPrice
)

func (p MatchPolicy) String() string {
	switch p {
	case MatchCrossing:
		return "crossing"
	case MatchExactPrice:
		return "exact"
	}
	return "unknown"
}

// ParseMatchPolicy accepts "crossing" or "exact".
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch s {
	case "crossing", "":
		return MatchCrossing, nil
	case "exact":
		return MatchExactPrice, nil
	}
	return 0, fmt.Errorf("unknown limit match policy %q", s)
}

// OrderBook holds the resting orders of one trading pair. Every exported
// method holds the book lock for its whole duration, so a placement is
// never interleaved with another mutation of the same book.
type OrderBook struct {
	mu     sync.Mutex
	pair   types.TradingPair
	policy MatchPolicy

	bids *bookSide
	asks *bookSide

	// resting orders by ID, for cancel-by-ID
	index map[string]*types.Order

	now     func() time.Time
	nextSeq func() uint64 // fill sequence source, stamped under the book lock
}

// Match is the outcome of one incoming order, captured under the book lock.
// Order is a copy of the incoming order as it left the matching pass, so it
// stays stable after a rested remainder is filled by later orders.
type Match struct {
	Fills  []types.Fill
	Order  types.Order
	Rested bool
}

func NewOrderBook(pair types.TradingPair, policy MatchPolicy) *OrderBook {
	return &OrderBook{
		pair:   pair,
		policy: policy,
		bids:   newBookSide(types.Bid),
		asks:   newBookSide(types.Ask),
		index:  make(map[string]*types.Order),
		now:    time.Now,
	}
}

func (ob *OrderBook) Pair() types.TradingPair { return ob.pair }
func (ob *OrderBook) Policy() MatchPolicy     { return ob.policy }

// sideOf expects a valid side; public methods check it first.
func (ob *OrderBook) sideOf(side types.Side) *bookSide {
	if side == types.Bid {
		return ob.bids
	}
	return ob.asks
}

// AddRestingOrder queues order at its price on its own side.
func (ob *OrderBook) AddRestingOrder(order *types.Order) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.addResting(order)
}

func (ob *OrderBook) addResting(order *types.Order) error {
	if order.Kind != types.LimitOrder {
		return fmt.Errorf("%w: %s order %s", types.ErrNotRestable, order.Kind, order.ID)
	}
	if order.IsFilled() {
		return fmt.Errorf("%w: order %s is already filled", types.ErrNotRestable, order.ID)
	}
	if !order.Side.Valid() {
		return fmt.Errorf("%w: %d", types.ErrInvalidSide, order.Side)
	}

	level := ob.sideOf(order.Side).levelOrCreate(order.Price)
	if err := level.Add(order); err != nil {
		return err
	}
	ob.index[order.ID] = order
	return nil
}

// MatchMarketOrder sweeps the opposite side best price first until incoming
// is filled or the side is empty. Whatever is left of incoming is not rested.
func (ob *OrderBook) MatchMarketOrder(incoming *types.Order) []types.Fill {
	return ob.PlaceMarket(incoming).Fills
}

// PlaceMarket is MatchMarketOrder returning a Match.
func (ob *OrderBook) PlaceMarket(incoming *types.Order) Match {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if !incoming.Side.Valid() {
		return Match{Order: *incoming}
	}
	fills := ob.sweep(incoming, func(types.Price) bool { return true })
	return Match{Fills: fills, Order: *incoming}
}

// MatchLimitOrder fills incoming according to the book's policy and rests
// any remainder.
func (ob *OrderBook) MatchLimitOrder(incoming *types.Order) ([]types.Fill, error) {
	m, err := ob.PlaceLimit(incoming)
	return m.Fills, err
}

// PlaceLimit is MatchLimitOrder returning a Match.
func (ob *OrderBook) PlaceLimit(incoming *types.Order) (Match, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if !incoming.Side.Valid() {
		return Match{Order: *incoming}, fmt.Errorf("%w: %d", types.ErrInvalidSide, incoming.Side)
	}

	var fills []types.Fill
	switch ob.policy {
	case MatchExactPrice:
		fills = ob.fillExact(incoming)
	default:
		fills = ob.sweep(incoming, func(best types.Price) bool {
			return crosses(incoming.Side, incoming.Price, best)
		})
	}

	m := Match{Fills: fills}
	if !incoming.IsFilled() {
		if err := ob.addResting(incoming); err != nil {
			m.Order = *incoming
			return m, err
		}
		m.Rested = true
	}
	m.Order = *incoming
	return m, nil
}

// crosses reports whether a limit on side at limit is willing to trade at best.
func crosses(side types.Side, limit, best types.Price) bool {
	if side == types.Bid {
		return best.Cmp(limit) <= 0
	}
	return best.Cmp(limit) >= 0
}

// sweep fills incoming level by level while accept approves the best
// opposite price. Levels emptied along the way are removed.
func (ob *OrderBook) sweep(incoming *types.Order, accept func(types.Price) bool) []types.Fill {
	opposite := ob.sideOf(incoming.Side.Opposite())
	var fills []types.Fill

	for !incoming.IsFilled() {
		level, ok := opposite.best()
		if !ok || !accept(level.Price()) {
			break
		}
		fills = append(fills, ob.fillLevel(opposite, level, incoming)...)
	}
	return fills
}

func (ob *OrderBook) fillExact(incoming *types.Order) []types.Fill {
	opposite := ob.sideOf(incoming.Side.Opposite())
	level, ok := opposite.level(incoming.Price)
	if !ok {
		return nil
	}
	return ob.fillLevel(opposite, level, incoming)
}

func (ob *OrderBook) fillLevel(side *bookSide, level *PriceLevel, incoming *types.Order) []types.Fill {
	fills := level.Fill(incoming)

	ts := ob.now()
	for i := range fills {
		fills[i].Pair = ob.pair
		fills[i].Timestamp = ts
		if ob.nextSeq != nil {
			fills[i].Sequence = ob.nextSeq()
		}
		if maker := ob.index[fills[i].MakerOrderID]; maker != nil && maker.IsFilled() {
			delete(ob.index, maker.ID)
		}
	}

	side.removeIfEmpty(level.Price())
	return fills
}

// CancelOrder removes the oldest order of traderID resting at price on side.
func (ob *OrderBook) CancelOrder(price types.Price, side types.Side, traderID string) (*types.Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if !side.Valid() {
		return nil, fmt.Errorf("%w: %d", types.ErrInvalidSide, side)
	}
	return ob.cancelWhere(price, side, func(o *types.Order) bool { return o.TraderID == traderID })
}

// CancelOrderByID removes the resting order with the given ID.
func (ob *OrderBook) CancelOrderByID(orderID string) (*types.Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, ok := ob.index[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrOrderNotFound, orderID)
	}
	return ob.cancelWhere(order.Price, order.Side, func(o *types.Order) bool { return o.ID == orderID })
}

func (ob *OrderBook) cancelWhere(price types.Price, side types.Side, match func(*types.Order) bool) (*types.Order, error) {
	bs := ob.sideOf(side)
	level, ok := bs.level(price)
	if !ok {
		return nil, fmt.Errorf("%w: no %s level at %s", types.ErrOrderNotFound, side, price)
	}

	i := level.indexOf(match)
	if i < 0 {
		return nil, fmt.Errorf("%w: no matching %s order at %s", types.ErrOrderNotFound, side, price)
	}

	removed, _ := level.RemoveOrder(i)
	delete(ob.index, removed.ID)
	bs.removeIfEmpty(price)
	return removed, nil
}

// RemovePriceLevel drops a whole level and every order queued on it.
func (ob *OrderBook) RemovePriceLevel(price types.Price, side types.Side) (*PriceLevel, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if !side.Valid() {
		return nil, false
	}
	level, ok := ob.sideOf(side).remove(price)
	if !ok {
		return nil, false
	}
	for _, o := range level.orders {
		delete(ob.index, o.ID)
	}
	return level, true
}

// BestPrice returns the top of side, if any.
func (ob *OrderBook) BestPrice(side types.Side) (types.Price, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if !side.Valid() {
		return types.Price{}, false
	}
	level, ok := ob.sideOf(side).best()
	if !ok {
		return types.Price{}, false
	}
	return level.Price(), true
}

// Spread is best ask minus best bid, when both sides are populated.
func (ob *OrderBook) Spread() (decimal.Decimal, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	bid, okBid := ob.bids.best()
	ask, okAsk := ob.asks.best()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return ask.Price().Decimal().Sub(bid.Price().Decimal()), true
}

// PriceLevelSnapshot copies the level at price on side.
func (ob *OrderBook) PriceLevelSnapshot(price types.Price, side types.Side) (types.LevelSnapshot, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if !side.Valid() {
		return types.LevelSnapshot{}, false
	}
	level, ok := ob.sideOf(side).level(price)
	if !ok {
		return types.LevelSnapshot{}, false
	}
	return level.snapshot(side), true
}

// Depth aggregates up to levels price levels per side; levels <= 0 means all.
func (ob *OrderBook) Depth(levels int) types.BookSnapshot {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return types.BookSnapshot{
		Pair: ob.pair,
		Bids: ob.bids.depth(levels),
		Asks: ob.asks.depth(levels),
	}
}

// Order looks up a resting order by ID.
func (ob *OrderBook) Order(orderID string) (*types.Order, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	o, ok := ob.index[orderID]
	return o, ok
}

// LevelCount returns the number of distinct prices resting on side.
func (ob *OrderBook) LevelCount(side types.Side) int {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if !side.Valid() {
		return 0
	}
	return len(ob.sideOf(side).prices)
}

// Prices returns the prices on side, best first.
func (ob *OrderBook) Prices(side types.Side) []types.Price {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if !side.Valid() {
		return nil
	}
	prices := ob.sideOf(side).prices
	out := make([]types.Price, len(prices))
	copy(out, prices)
	return out
}
