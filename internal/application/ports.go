package application

import (
	"context"
	"time"

	"fxrates-engine/internal/domain"
)

// RateProvider is the remote rate source.
type RateProvider interface {
	LatestRate(ctx context.Context, from, to domain.Currency) (domain.RateQuote, error)
	LatestRates(ctx context.Context, base domain.Currency) (map[string]float64, time.Time, error)
	HistoricalRates(ctx context.Context, from, to domain.Currency, start, end time.Time) ([]domain.RateQuote, error)
}

// PairStore is the per-pair rate cache. Implementations log and swallow persistence failures.
type PairStore interface {
	Put(ctx context.Context, from, to string, rate float64, at time.Time)
	Rate(ctx context.Context, from, to string) (float64, bool)
	Timestamp(ctx context.Context, from, to string) (time.Time, bool)
	All(ctx context.Context) map[string]float64
	LatestTimestamp(ctx context.Context) (time.Time, bool)
}

// SnapshotStore is the single global rate snapshot.
type SnapshotStore interface {
	Save(rates map[string]float64, at time.Time)
	LoadRates() map[string]float64
	LoadTimestamp() *time.Time
}

type CurrencyLookup interface {
	ByCode(code string) (domain.Currency, error)
	ByName(name string) (domain.Currency, error)
	All() []domain.Currency
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }
