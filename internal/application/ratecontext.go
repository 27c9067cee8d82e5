package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fxrates-engine/internal/domain"
)

// RateContext holds the active strategy. Mode changes only through SetStrategy or SwitchMode.
type RateContext struct {
	mu      sync.RWMutex
	current RateStrategy
	byMode  map[domain.Mode]RateStrategy
}

var _ RateStrategy = (*RateContext)(nil)

func NewRateContext(online, offline RateStrategy, start domain.Mode) (*RateContext, error) {
	c := &RateContext{byMode: map[domain.Mode]RateStrategy{
		domain.ModeOnline:  online,
		domain.ModeOffline: offline,
	}}
	if err := c.SwitchMode(start); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *RateContext) SetStrategy(s RateStrategy) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}

func (c *RateContext) SwitchMode(m domain.Mode) error {
	s, ok := c.byMode[m]
	if !ok || s == nil {
		return fmt.Errorf("%w: unknown mode %q", ErrBadRequest, m)
	}
	c.SetStrategy(s)
	return nil
}

func (c *RateContext) Strategy() RateStrategy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *RateContext) Mode() domain.Mode { return domain.Mode(c.Strategy().Name()) }

func (c *RateContext) Name() string { return c.Strategy().Name() }

func (c *RateContext) Convert(ctx context.Context, from, to domain.Currency, amount float64) (float64, error) {
	return c.Strategy().Convert(ctx, from, to, amount)
}

func (c *RateContext) LatestRates(ctx context.Context, base domain.Currency) (map[string]float64, error) {
	return c.Strategy().LatestRates(ctx, base)
}

func (c *RateContext) HistoricalRates(ctx context.Context, from, to domain.Currency, start, end time.Time) ([]domain.RateQuote, error) {
	return c.Strategy().HistoricalRates(ctx, from, to, start, end)
}

// Quote uses the strategy's Quoter when available, otherwise converts one unit.
func (c *RateContext) Quote(ctx context.Context, from, to domain.Currency) (domain.RateQuote, error) {
	return quoteWith(ctx, c.Strategy(), from, to)
}

func quoteWith(ctx context.Context, s RateStrategy, from, to domain.Currency) (domain.RateQuote, error) {
	if q, ok := s.(Quoter); ok {
		return q.Quote(ctx, from, to)
	}
	rate, err := s.Convert(ctx, from, to, 1)
	if err != nil {
		return domain.RateQuote{}, err
	}
	return domain.RateQuote{From: from, To: to, Rate: rate, ObservedAt: time.Now().UTC()}, nil
}
