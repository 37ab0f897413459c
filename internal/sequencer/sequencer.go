package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/PxPatel/limit-matching-engine/internal/logger"
	"github.com/PxPatel/limit-matching-engine/internal/matching"
	"github.com/PxPatel/limit-matching-engine/internal/metrics"
	"github.com/PxPatel/limit-matching-engine/internal/types"
)

// ErrSequencerStopped is returned by Submit once Stop has been called.
var ErrSequencerStopped = errors.New("sequencer stopped")

const defaultBufferSize = 1024

// CommandKind names the operation a Command performs.
type CommandKind uint8

const (
	PlaceLimit CommandKind = iota + 1
	PlaceMarket
	Cancel
)

func (k CommandKind) String() string {
	switch k {
	case PlaceLimit:
		return "place_limit"
	case PlaceMarket:
		return "place_market"
	case Cancel:
		return "cancel"
	}
	return "unknown"
}

// Command is one request routed to a market's lane.
//
// Cancel uses OrderID when set; otherwise it cancels the oldest order of
// Request.TraderID resting at Price on Request.Side.
type Command struct {
	Kind    CommandKind
	Pair    types.TradingPair
	Price   types.Price
	Request types.OrderRequest
	OrderID string
}

// Result is what a lane answers for one command.
type Result struct {
	Sequence  uint64
	Execution *matching.Execution // set for placements
	Cancelled *types.Order        // set for cancels
}

type envelope struct {
	cmd   Command
	reply chan reply
}

type reply struct {
	result Result
	err    error
}

type lane struct {
	pair types.TradingPair
	in   chan envelope
}

// Submitter runs commands against an engine.
type Submitter interface {
	Submit(ctx context.Context, cmd Command) (Result, error)
}

// Sequencer gives every market a single writer. Commands for one pair are
// applied one at a time in arrival order; different pairs run in parallel.
type Sequencer struct {
	engine     *matching.Engine
	bufferSize int
	log        *zap.Logger

	inboundSeq atomic.Uint64

	mu      sync.RWMutex
	lanes   map[types.TradingPair]*lane
	stopped bool
	wg      sync.WaitGroup
}

// New creates a sequencer in front of engine. Lanes start on the first
// command for their market.
func New(engine *matching.Engine, bufferSize int, log *zap.Logger) *Sequencer {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Sequencer{
		engine:     engine,
		bufferSize: bufferSize,
		log:        logger.OrNop(log),
		lanes:      make(map[types.TradingPair]*lane),
	}
}

// Submit enqueues cmd on its market's lane and waits for the result. It
// blocks while the lane is full. A ctx that is already done is refused
// before anything is queued. If ctx ends after the command was queued, the
// command still runs but its result is discarded.
func (s *Sequencer) Submit(ctx context.Context, cmd Command) (Result, error) {
	l, err := s.lane(cmd.Pair)
	if err != nil {
		return Result{}, err
	}

	env := envelope{cmd: cmd, reply: make(chan reply, 1)}
	if err := s.enqueue(ctx, l, env); err != nil {
		return Result{}, err
	}

	select {
	case r := <-env.reply:
		return r.result, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (s *Sequencer) enqueue(ctx context.Context, l *lane, env envelope) error {
	// Stop closes lanes under the write lock, so holding the read lock
	// keeps l.in open for the duration of the send.
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return ErrSequencerStopped
	}
	// select picks randomly among ready cases; a done ctx must never queue.
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case l.in <- env:
		metrics.SequencerQueueDepth.WithLabelValues(l.pair.String()).Set(float64(len(l.in)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lane returns the running lane for pair, starting it if needed.
func (s *Sequencer) lane(pair types.TradingPair) (*lane, error) {
	s.mu.RLock()
	l, ok := s.lanes[pair]
	stopped := s.stopped
	s.mu.RUnlock()

	if stopped {
		return nil, ErrSequencerStopped
	}
	if ok {
		return l, nil
	}
	if !s.engine.HasMarket(pair) {
		return nil, fmt.Errorf("%w: %s", types.ErrMarketDoesNotExist, pair)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrSequencerStopped
	}
	if l, ok := s.lanes[pair]; ok {
		return l, nil
	}

	l = &lane{pair: pair, in: make(chan envelope, s.bufferSize)}
	s.lanes[pair] = l
	s.wg.Add(1)
	go s.run(l)
	return l, nil
}

// run is the lane's single-writer loop. It exits once the channel is closed
// and drained.
func (s *Sequencer) run(l *lane) {
	defer s.wg.Done()

	s.log.Debug("sequencer lane started", zap.Stringer("pair", l.pair))
	for env := range l.in {
		metrics.SequencerQueueDepth.WithLabelValues(l.pair.String()).Set(float64(len(l.in)))
		result, err := s.apply(env.cmd)
		env.reply <- reply{result: result, err: err}
	}
	s.log.Debug("sequencer lane stopped", zap.Stringer("pair", l.pair))
}

func (s *Sequencer) apply(cmd Command) (Result, error) {
	result, err := execute(s.engine, cmd)
	result.Sequence = s.inboundSeq.Add(1)
	return result, err
}

func execute(engine *matching.Engine, cmd Command) (Result, error) {
	var (
		result Result
		err    error
	)
	switch cmd.Kind {
	case PlaceLimit:
		result.Execution, err = engine.PlaceLimitOrder(cmd.Pair, cmd.Price, cmd.Request)
	case PlaceMarket:
		result.Execution, err = engine.PlaceMarketOrder(cmd.Pair, cmd.Request)
	case Cancel:
		if cmd.OrderID != "" {
			result.Cancelled, err = engine.CancelOrderByID(cmd.Pair, cmd.OrderID)
		} else {
			result.Cancelled, err = engine.CancelOrder(cmd.Pair, cmd.Price, cmd.Request.Side, cmd.Request.TraderID)
		}
	default:
		err = fmt.Errorf("unknown command kind %d", cmd.Kind)
	}
	return result, err
}

// Stop closes every lane, waits for queued commands to finish and rejects
// later submissions. Calling Stop twice is a no-op.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, l := range s.lanes {
		close(l.in)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("sequencer stopped", zap.Uint64("commands", s.inboundSeq.Load()))
}

// CurrentInboundSeq returns the number of commands applied so far.
func (s *Sequencer) CurrentInboundSeq() uint64 {
	return s.inboundSeq.Load()
}

// Inline applies commands on the caller's goroutine, relying on the order
// books' own locks. It is the Submitter used when lanes are disabled.
type Inline struct {
	engine     *matching.Engine
	inboundSeq atomic.Uint64
}

func NewInline(engine *matching.Engine) *Inline {
	return &Inline{engine: engine}
}

func (i *Inline) Submit(ctx context.Context, cmd Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	result, err := execute(i.engine, cmd)
	result.Sequence = i.inboundSeq.Add(1)
	return result, err
}
