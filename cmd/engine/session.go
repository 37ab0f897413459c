package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/PxPatel/limit-matching-engine/internal/sequencer"
	"github.com/PxPatel/limit-matching-engine/internal/types"
)

// session replays a fixed set of commands so a fresh process has something
// in its books and on its fill tape.
type session struct {
	submitter sequencer.Submitter
	timeout   time.Duration
	log       *zap.Logger
}

type step struct {
	name string
	cmd  sequencer.Command
}

func limit(pair types.TradingPair, trader string, side types.Side, price, size string) sequencer.Command {
	return sequencer.Command{
		Kind:    sequencer.PlaceLimit,
		Pair:    pair,
		Price:   types.MustParsePrice(price),
		Request: types.OrderRequest{TraderID: trader, Side: side, Size: decimal.RequireFromString(size)},
	}
}

func market(pair types.TradingPair, trader string, side types.Side, size string) sequencer.Command {
	return sequencer.Command{
		Kind:    sequencer.PlaceMarket,
		Pair:    pair,
		Request: types.OrderRequest{TraderID: trader, Side: side, Size: decimal.RequireFromString(size)},
	}
}

func cancelAt(pair types.TradingPair, trader string, side types.Side, price string) sequencer.Command {
	return sequencer.Command{
		Kind:    sequencer.Cancel,
		Pair:    pair,
		Price:   types.MustParsePrice(price),
		Request: types.OrderRequest{TraderID: trader, Side: side},
	}
}

func script(pair types.TradingPair) []step {
	unlisted := types.TradingPair{Base: "BTD", Quote: pair.Quote}

	return []step{
		{"alison bids", limit(pair, "alison", types.Bid, "5.5", "1")},
		{"duncan bids behind alison", limit(pair, "duncan", types.Bid, "5.5", "1")},
		{"duncan asks into the bids", limit(pair, "duncan", types.Ask, "5.5", "1")},
		{"carol offers", limit(pair, "carol", types.Ask, "6", "2")},
		{"carol offers higher", limit(pair, "carol", types.Ask, "6.5", "3")},
		{"erin sweeps the asks", market(pair, "erin", types.Bid, "4")},
		{"carol pulls her remaining offer", cancelAt(pair, "carol", types.Ask, "6.5")},
		{"bid on an unlisted market", limit(unlisted, "alison", types.Bid, "10", "1")},
	}
}

func (s *session) replay(ctx context.Context, pair types.TradingPair) error {
	for _, st := range script(pair) {
		if err := s.submit(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) submit(ctx context.Context, st step) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.submitter.Submit(ctx, st.cmd)
	switch {
	case errors.Is(err, types.ErrMarketDoesNotExist), errors.Is(err, types.ErrOrderNotFound):
		s.log.Info("session step refused",
			zap.String("step", st.name),
			zap.Error(err),
		)
		return nil
	case err != nil:
		return fmt.Errorf("session step %q: %w", st.name, err)
	}

	fields := []zap.Field{
		zap.String("step", st.name),
		zap.Uint64("seq", result.Sequence),
	}
	if exec := result.Execution; exec != nil {
		fields = append(fields,
			zap.String("order_id", exec.Order.ID),
			zap.Int("fills", len(exec.Fills)),
			zap.String("filled", types.SumQuantity(exec.Fills).String()),
			zap.Bool("rested", exec.Rested),
		)
	}
	if c := result.Cancelled; c != nil {
		fields = append(fields,
			zap.String("cancelled_id", c.ID),
			zap.String("cancelled_remaining", c.RemainingSize().String()),
		)
	}
	s.log.Info("session step", fields...)
	return nil
}
