package application

import (
	"context"
	"fmt"
	"time"

	"fxrates-engine/internal/adapters/logctx"
	"fxrates-engine/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateStrategy answers rate questions either from the network or from the local caches.
type RateStrategy interface {
	Convert(ctx context.Context, from, to domain.Currency, amount float64) (float64, error)
	LatestRates(ctx context.Context, base domain.Currency) (map[string]float64, error)
	HistoricalRates(ctx context.Context, from, to domain.Currency, start, end time.Time) ([]domain.RateQuote, error)
	Name() string
}

// Quoter is implemented by strategies that can report the rate and its observation time.
type Quoter interface {
	Quote(ctx context.Context, from, to domain.Currency) (domain.RateQuote, error)
}

func multiply(amount, rate float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).Float64()
	return f
}

// OnlineStrategy asks the provider and writes every successful answer through to the caches.
type OnlineStrategy struct {
	provider RateProvider
	pairs    PairStore
	snapshot SnapshotStore
	clock    Clock
	log      *zap.Logger
}

var (
	_ RateStrategy = (*OnlineStrategy)(nil)
	_ Quoter       = (*OnlineStrategy)(nil)
)

func NewOnlineStrategy(provider RateProvider, pairs PairStore, snapshot SnapshotStore, clock Clock, log *zap.Logger) *OnlineStrategy {
	if clock == nil {
		clock = realClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OnlineStrategy{provider: provider, pairs: pairs, snapshot: snapshot, clock: clock, log: log}
}

func (s *OnlineStrategy) Name() string { return string(domain.ModeOnline) }

// Quote fetches the latest cross-rate and stores it in the pair cache stamped with the fetch time.
func (s *OnlineStrategy) Quote(ctx context.Context, from, to domain.Currency) (domain.RateQuote, error) {
	q, err := s.provider.LatestRate(ctx, from, to)
	if err != nil {
		logctx.From(ctx, s.log).Warn("online.rate_failed", zap.String("pair", domain.PairKey(from.Code, to.Code)), zap.Error(err))
		return domain.RateQuote{}, fmt.Errorf("latest rate %s: %w", domain.PairKey(from.Code, to.Code), err)
	}
	s.pairs.Put(ctx, from.Code, to.Code, q.Rate, s.clock.Now())
	return q, nil
}

func (s *OnlineStrategy) Convert(ctx context.Context, from, to domain.Currency, amount float64) (float64, error) {
	q, err := s.Quote(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return multiply(amount, q.Rate), nil
}

// LatestRates fetches all rates for base and replaces the snapshot.
func (s *OnlineStrategy) LatestRates(ctx context.Context, base domain.Currency) (map[string]float64, error) {
	rates, _, err := s.provider.LatestRates(ctx, base)
	if err != nil {
		logctx.From(ctx, s.log).Warn("online.rates_failed", zap.String("base", base.Code), zap.Error(err))
		return nil, fmt.Errorf("latest rates %s: %w", base.Code, err)
	}
	s.snapshot.Save(rates, s.clock.Now())
	return rates, nil
}

func (s *OnlineStrategy) HistoricalRates(context.Context, domain.Currency, domain.Currency, time.Time, time.Time) ([]domain.RateQuote, error) {
	return nil, &domain.UnsupportedOperationError{Op: "historical rates", Strategy: s.Name()}
}

// OfflineStrategy reads only from the caches.
type OfflineStrategy struct {
	pairs    PairStore
	snapshot SnapshotStore
}

var (
	_ RateStrategy = (*OfflineStrategy)(nil)
	_ Quoter       = (*OfflineStrategy)(nil)
)

func NewOfflineStrategy(pairs PairStore, snapshot SnapshotStore) *OfflineStrategy {
	return &OfflineStrategy{pairs: pairs, snapshot: snapshot}
}

func (s *OfflineStrategy) Name() string { return string(domain.ModeOffline) }

func (s *OfflineStrategy) Quote(ctx context.Context, from, to domain.Currency) (domain.RateQuote, error) {
	rate, ok := s.pairs.Rate(ctx, from.Code, to.Code)
	if !ok {
		return domain.RateQuote{}, &domain.DataUnavailableError{What: domain.PairKey(from.Code, to.Code)}
	}
	at, _ := s.pairs.Timestamp(ctx, from.Code, to.Code)
	return domain.RateQuote{From: from, To: to, Rate: rate, ObservedAt: at}, nil
}

func (s *OfflineStrategy) Convert(ctx context.Context, from, to domain.Currency, amount float64) (float64, error) {
	q, err := s.Quote(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return multiply(amount, q.Rate), nil
}

// LatestRates rebases the stored snapshot to base.
func (s *OfflineStrategy) LatestRates(_ context.Context, base domain.Currency) (map[string]float64, error) {
	rates := s.snapshot.LoadRates()
	if rates == nil {
		return nil, &domain.DataUnavailableError{What: "rate snapshot"}
	}
	b, ok := rates[base.Code]
	if !ok || b <= 0 {
		return nil, &domain.DataUnavailableError{What: "snapshot rates for " + base.Code}
	}
	out := make(map[string]float64, len(rates))
	for c, r := range rates {
		out[c] = r / b
	}
	out[base.Code] = 1
	return out, nil
}

func (s *OfflineStrategy) HistoricalRates(context.Context, domain.Currency, domain.Currency, time.Time, time.Time) ([]domain.RateQuote, error) {
	return nil, &domain.UnsupportedOperationError{Op: "historical rates", Strategy: s.Name()}
}

// CacheSummary is everything the offline caches currently hold.
type CacheSummary struct {
	Rates      map[string]float64 `json:"rates"`
	LatestAt   *time.Time         `json:"latest_at,omitempty"`
	SnapshotAt *time.Time         `json:"snapshot_at,omitempty"`
}

func (s *OfflineStrategy) Summary(ctx context.Context) CacheSummary {
	sum := CacheSummary{Rates: s.pairs.All(ctx), SnapshotAt: s.snapshot.LoadTimestamp()}
	if sum.Rates == nil {
		sum.Rates = map[string]float64{}
	}
	if at, ok := s.pairs.LatestTimestamp(ctx); ok {
		sum.LatestAt = &at
	}
	return sum
}
