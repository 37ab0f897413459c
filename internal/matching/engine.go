package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/PxPatel/limit-matching-engine/internal/logger"
	"github.com/PxPatel/limit-matching-engine/internal/metrics"
	"github.com/PxPatel/limit-matching-engine/internal/storage"
	"github.com/PxPatel/limit-matching-engine/internal/types"
)

// Execution is the outcome of placing one order. Order is a copy taken when
// matching finished; a rested remainder may be filled later without it
// changing.
type Execution struct {
	Order  types.Order
	Fills  []types.Fill
	Rested bool // the unfilled remainder is now resting in the book
}

// Engine maps trading pairs to their order books and routes orders to them.
// The registry is read-mostly and guarded separately from the books, which
// serialize their own mutations.
type Engine struct {
	mu    sync.RWMutex
	books map[types.TradingPair]*OrderBook

	policy  MatchPolicy
	fills   storage.FillStore
	log     *zap.Logger
	fillSeq atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = logger.OrNop(l) }
}

// WithFillStore sends every fill to store after the book lock is released.
func WithFillStore(store storage.FillStore) Option {
	return func(e *Engine) { e.fills = store }
}

// WithMatchPolicy sets the limit order policy for books created afterwards.
func WithMatchPolicy(p MatchPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		books:  make(map[types.TradingPair]*OrderBook),
		policy: MatchCrossing,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddNewMarket registers an empty book for pair. Registering a pair twice
// fails and leaves the existing book untouched.
func (e *Engine) AddNewMarket(pair types.TradingPair) error {
	if pair.Base == "" || pair.Quote == "" {
		return fmt.Errorf("%w: %q", types.ErrInvalidTradingPair, pair.String())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.books[pair]; exists {
		return fmt.Errorf("%w: %s", types.ErrMarketAlreadyExists, pair)
	}
	book := NewOrderBook(pair, e.policy)
	book.nextSeq = func() uint64 { return e.fillSeq.Add(1) }
	e.books[pair] = book

	e.log.Info("market registered",
		zap.Stringer("pair", pair),
		zap.Stringer("policy", e.policy),
	)
	return nil
}

func (e *Engine) book(pair types.TradingPair) (*OrderBook, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	book, ok := e.books[pair]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrMarketDoesNotExist, pair)
	}
	return book, nil
}

// HasMarket reports whether pair is registered.
func (e *Engine) HasMarket(pair types.TradingPair) bool {
	_, err := e.book(pair)
	return err == nil
}

// Markets lists registered pairs in lexical order.
func (e *Engine) Markets() []types.TradingPair {
	e.mu.RLock()
	pairs := make([]types.TradingPair, 0, len(e.books))
	for pair := range e.books {
		pairs = append(pairs, pair)
	}
	e.mu.RUnlock()

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })
	return pairs
}

// OrderBook returns the book for pair.
func (e *Engine) OrderBook(pair types.TradingPair) (*OrderBook, error) {
	return e.book(pair)
}

// PlaceLimitOrder builds an order at price from req and matches it in the
// pair's book. Any unfilled remainder rests. A zero limit price is rejected
// with ErrInvalidPrice.
func (e *Engine) PlaceLimitOrder(pair types.TradingPair, price types.Price, req types.OrderRequest) (*Execution, error) {
	book, err := e.book(pair)
	if err != nil {
		e.reject(err)
		return nil, err
	}
	if price.IsZero() {
		err := fmt.Errorf("%w: limit price must be positive", types.ErrInvalidPrice)
		e.reject(err)
		return nil, err
	}

	order, err := types.NewOrder(req.TraderID, req.Side, price, req.Size)
	if err != nil {
		e.reject(err)
		return nil, err
	}

	start := time.Now()
	match, err := book.PlaceLimit(order)
	if err != nil {
		return nil, fmt.Errorf("place limit order %s on %s: %w", order.ID, pair, err)
	}
	e.observe(book, order.Kind, start)

	exec := &Execution{
		Order:  match.Order,
		Fills:  e.publish(match.Fills),
		Rested: match.Rested,
	}

	e.log.Debug("limit order placed",
		zap.Stringer("pair", pair),
		zap.String("order_id", exec.Order.ID),
		zap.String("trader_id", exec.Order.TraderID),
		zap.Stringer("side", exec.Order.Side),
		zap.Stringer("price", price),
		zap.String("size", exec.Order.Quantity.String()),
		zap.Int("fills", len(exec.Fills)),
		zap.Bool("rested", exec.Rested),
	)
	return exec, nil
}

// PlaceMarketOrder matches req against the best prices available. Any part
// the book cannot fill is dropped.
func (e *Engine) PlaceMarketOrder(pair types.TradingPair, req types.OrderRequest) (*Execution, error) {
	book, err := e.book(pair)
	if err != nil {
		e.reject(err)
		return nil, err
	}

	order, err := types.NewMarketOrder(req.TraderID, req.Side, req.Size)
	if err != nil {
		e.reject(err)
		return nil, err
	}

	start := time.Now()
	match := book.PlaceMarket(order)
	e.observe(book, order.Kind, start)

	exec := &Execution{
		Order: match.Order,
		Fills: e.publish(match.Fills),
	}

	if !exec.Order.IsFilled() {
		e.log.Info("market order partially unfilled",
			zap.Stringer("pair", pair),
			zap.String("order_id", exec.Order.ID),
			zap.String("unfilled", exec.Order.RemainingSize().String()),
		)
	}
	return exec, nil
}

// CancelOrder removes the oldest order of traderID resting at price on side.
func (e *Engine) CancelOrder(pair types.TradingPair, price types.Price, side types.Side, traderID string) (*types.Order, error) {
	book, err := e.book(pair)
	if err != nil {
		return nil, err
	}
	order, err := book.CancelOrder(price, side, traderID)
	if err != nil {
		return nil, err
	}
	e.cancelled(book, order)
	return order, nil
}

// CancelOrderByID removes a resting order by its ID.
func (e *Engine) CancelOrderByID(pair types.TradingPair, orderID string) (*types.Order, error) {
	book, err := e.book(pair)
	if err != nil {
		return nil, err
	}
	order, err := book.CancelOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	e.cancelled(book, order)
	return order, nil
}

// BestPrice returns the top of side for pair.
func (e *Engine) BestPrice(pair types.TradingPair, side types.Side) (types.Price, bool, error) {
	book, err := e.book(pair)
	if err != nil {
		return types.Price{}, false, err
	}
	price, ok := book.BestPrice(side)
	return price, ok, nil
}

// PriceLevelSnapshot copies one level of pair's book.
func (e *Engine) PriceLevelSnapshot(pair types.TradingPair, price types.Price, side types.Side) (types.LevelSnapshot, bool, error) {
	book, err := e.book(pair)
	if err != nil {
		return types.LevelSnapshot{}, false, err
	}
	snap, ok := book.PriceLevelSnapshot(price, side)
	return snap, ok, nil
}

// Depth returns an aggregated view of pair's book.
func (e *Engine) Depth(pair types.TradingPair, levels int) (types.BookSnapshot, error) {
	book, err := e.book(pair)
	if err != nil {
		return types.BookSnapshot{}, err
	}
	return book.Depth(levels), nil
}

// RecentFills reads back from the fill store, if one is configured.
func (e *Engine) RecentFills(ctx context.Context, limit int) ([]types.Fill, error) {
	if e.fills == nil {
		return []types.Fill{}, nil
	}
	return e.fills.Recent(ctx, limit)
}

// Close releases the fill store.
func (e *Engine) Close() error {
	if e.fills == nil {
		return nil
	}
	return e.fills.Close()
}

// publish records metrics and hands fills to the store. Sequence numbers
// were stamped by the book under its lock.
func (e *Engine) publish(fills []types.Fill) []types.Fill {
	if len(fills) == 0 {
		return fills
	}

	pair := fills[0].Pair.String()
	metrics.FillsTotal.WithLabelValues(pair).Add(float64(len(fills)))
	metrics.FilledVolume.WithLabelValues(pair).Add(types.SumQuantity(fills).InexactFloat64())

	if e.fills != nil {
		if err := e.fills.SaveBatch(context.Background(), fills); err != nil {
			e.log.Warn("failed to store fills",
				zap.String("pair", pair),
				zap.Int("count", len(fills)),
				zap.Error(err),
			)
		}
	}
	return fills
}

func (e *Engine) observe(book *OrderBook, orderKind types.OrderKind, start time.Time) {
	pair := book.Pair().String()
	kind := orderKind.String()
	metrics.OrdersTotal.WithLabelValues(pair, kind).Inc()
	metrics.PlacementDuration.WithLabelValues(pair, kind).Observe(time.Since(start).Seconds())
	e.observeLevels(book)
}

func (e *Engine) observeLevels(book *OrderBook) {
	pair := book.Pair().String()
	metrics.BookLevels.WithLabelValues(pair, types.Bid.String()).Set(float64(book.LevelCount(types.Bid)))
	metrics.BookLevels.WithLabelValues(pair, types.Ask.String()).Set(float64(book.LevelCount(types.Ask)))
}

func (e *Engine) cancelled(book *OrderBook, order *types.Order) {
	metrics.CancelsTotal.WithLabelValues(book.Pair().String()).Inc()
	e.observeLevels(book)
	e.log.Debug("order cancelled",
		zap.Stringer("pair", book.Pair()),
		zap.String("order_id", order.ID),
		zap.String("trader_id", order.TraderID),
		zap.String("remaining", order.RemainingSize().String()),
	)
}

func (e *Engine) reject(err error) {
	metrics.OrdersRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
	e.log.Warn("order rejected", zap.Error(err))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, types.ErrMarketDoesNotExist):
		return "market_does_not_exist"
	case errors.Is(err, types.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, types.ErrInvalidOrderSize):
		return "invalid_order_size"
	case errors.Is(err, types.ErrInvalidSide):
		return "invalid_side"
	case errors.Is(err, types.ErrInvalidTrader):
		return "invalid_trader"
	}
	return "other"
}
