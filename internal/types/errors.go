package types

import "errors"

// Input validation errors. Orders that fail these checks never reach a book.
var (
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidOrderSize   = errors.New("invalid order size")
	ErrInvalidSide        = errors.New("invalid side")
	ErrInvalidTrader      = errors.New("invalid trader id")
	ErrInvalidTradingPair = errors.New("invalid trading pair")
)

// Registry and book errors surfaced to callers.
var (
	ErrMarketDoesNotExist  = errors.New("market does not exist")
	ErrMarketAlreadyExists = errors.New("market already exists")
	ErrOrderNotFound       = errors.New("order not found")
	ErrNotRestable         = errors.New("order cannot rest in the book")
	ErrPriceMismatch       = errors.New("order price does not match price level")
)

// ErrOverfill is returned when an order is reduced by more than it has left.
// Inside a fill pass it indicates a broken invariant.
var ErrOverfill = errors.New("reduction exceeds remaining size")
