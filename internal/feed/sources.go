package feed

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrSourceExhausted is returned by a finite source after its last price
var ErrSourceExhausted = errors.New("price source exhausted")

// DefaultPollInterval is how often the live source samples the price cell
const DefaultPollInterval = 250 * time.Millisecond

// LiveSource samples a PriceCell at a fixed interval
type LiveSource struct {
	cell     *PriceCell
	interval time.Duration
	started  bool
}

// NewLiveSource creates a source over cell; a non-positive interval uses the default
func NewLiveSource(cell *PriceCell, interval time.Duration) *LiveSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &LiveSource{cell: cell, interval: interval}
}

// Next waits one interval and returns the latest price. The first call
// returns as soon as any price is available.
func (s *LiveSource) Next(ctx context.Context) (decimal.Decimal, error) {
	if s.started {
		if err := sleep(ctx, s.interval); err != nil {
			return decimal.Zero, err
		}
	}
	for {
		if price, _, ok := s.cell.Load(); ok {
			s.started = true
			return price, nil
		}
		if err := sleep(ctx, s.interval); err != nil {
			return decimal.Zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ReplaySource yields a recorded series once, in order
type ReplaySource struct {
	prices []decimal.Decimal
	pos    int
	// OnPrice, when set, observes every price before it is returned
	OnPrice func(decimal.Decimal)
}

// NewReplaySource creates a source over prices
func NewReplaySource(prices []decimal.Decimal) *ReplaySource {
	return &ReplaySource{prices: prices}
}

// Next returns the next recorded price or ErrSourceExhausted
func (s *ReplaySource) Next(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	if s.pos >= len(s.prices) {
		return decimal.Zero, ErrSourceExhausted
	}
	price := s.prices[s.pos]
	s.pos++
	if s.OnPrice != nil {
		s.OnPrice(price)
	}
	return price, nil
}

// Position returns how many prices have been consumed
func (s *ReplaySource) Position() int {
	return s.pos
}
