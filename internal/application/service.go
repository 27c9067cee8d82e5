package application

import (
	"context"
	"fmt"
	"math"
	"time"

	"fxrates-engine/internal/adapters/logctx"
	"fxrates-engine/internal/domain"

	"go.uber.org/zap"
)

// HistoryProvider serves historical series directly from the remote source.
type HistoryProvider interface {
	HistoricalRates(ctx context.Context, from, to domain.Currency, start, end time.Time) ([]domain.RateQuote, error)
}

// Summarizer reports what the offline caches hold.
type Summarizer interface {
	Summary(ctx context.Context) CacheSummary
}

// ConversionResult is the answer to one conversion request.
type ConversionResult struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount float64     `json:"amount"`
	Rate   float64     `json:"rate"`
	Result float64     `json:"result"`
	Mode   domain.Mode `json:"mode"`
	At     time.Time   `json:"at"`
}

// DefaultMaxHistorySpan bounds the historical range accepted by HistoricalRates.
const DefaultMaxHistorySpan = 5 * 365 * 24 * time.Hour

type RatesService struct {
	catalog    CurrencyLookup
	rates      *RateContext
	history    HistoryProvider
	summary    Summarizer
	clock      Clock
	log        *zap.Logger
	maxHistory time.Duration
}

type Option func(*RatesService)

func WithClock(c Clock) Option { return func(s *RatesService) { s.clock = c } }
func WithLogger(l *zap.Logger) Option { return func(s *RatesService) { s.log = l } }

// WithMaxHistorySpan overrides DefaultMaxHistorySpan. Non-positive values keep the default.
func WithMaxHistorySpan(d time.Duration) Option {
	return func(s *RatesService) {
		if d > 0 {
			s.maxHistory = d
		}
	}
}

func NewRatesService(catalog CurrencyLookup, rates *RateContext, history HistoryProvider, summary Summarizer, opts ...Option) *RatesService {
	s := &RatesService{
		catalog:    catalog,
		rates:      rates,
		history:    history,
		summary:    summary,
		maxHistory: DefaultMaxHistorySpan,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *RatesService) Currencies() []domain.Currency { return s.catalog.All() }

func (s *RatesService) Currency(code string) (domain.Currency, error) { return s.catalog.ByCode(code) }

func (s *RatesService) CurrencyByName(name string) (domain.Currency, error) {
	return s.catalog.ByName(name)
}

func (s *RatesService) pair(from, to string) (domain.Currency, domain.Currency, error) {
	f, err := s.catalog.ByCode(from)
	if err != nil {
		return domain.Currency{}, domain.Currency{}, err
	}
	t, err := s.catalog.ByCode(to)
	if err != nil {
		return domain.Currency{}, domain.Currency{}, err
	}
	return f, t, nil
}

// Convert resolves both codes through the catalog and converts amount with the active strategy.
func (s *RatesService) Convert(ctx context.Context, from, to string, amount float64) (ConversionResult, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return ConversionResult{}, fmt.Errorf("%w: amount must be a non-negative number", ErrBadRequest)
	}
	f, t, err := s.pair(from, to)
	if err != nil {
		return ConversionResult{}, err
	}
	strategy := s.rates.Strategy()
	mode := domain.Mode(strategy.Name())
	q, err := quoteWith(ctx, strategy, f, t)
	if err != nil {
		return ConversionResult{}, err
	}
	res := ConversionResult{
		From:   f.Code,
		To:     t.Code,
		Amount: amount,
		Rate:   q.Rate,
		Result: multiply(amount, q.Rate),
		Mode:   mode,
		At:     s.clock.Now(),
	}
	logctx.From(ctx, s.log).Debug("convert.done",
		zap.String("pair", domain.PairKey(f.Code, t.Code)),
		zap.String("mode", string(mode)),
		zap.Float64("rate", q.Rate),
	)
	return res, nil
}

// LatestRate is the provider quote while online and the cached pair (with its cached time) while offline.
func (s *RatesService) LatestRate(ctx context.Context, from, to string) (domain.RateQuote, error) {
	f, t, err := s.pair(from, to)
	if err != nil {
		return domain.RateQuote{}, err
	}
	return s.rates.Quote(ctx, f, t)
}

func (s *RatesService) LatestRates(ctx context.Context, base string) (map[string]float64, error) {
	b, err := s.catalog.ByCode(base)
	if err != nil {
		return nil, err
	}
	return s.rates.LatestRates(ctx, b)
}

// HistoricalRates goes straight to the provider while online. Offline the active strategy refuses.
// An empty result is returned as is. Ranges longer than the configured maximum are rejected.
func (s *RatesService) HistoricalRates(ctx context.Context, from, to string, start, end time.Time) ([]domain.RateQuote, error) {
	f, t, err := s.pair(from, to)
	if err != nil {
		return nil, err
	}
	if end.Sub(start) > s.maxHistory {
		return nil, fmt.Errorf("%w: range exceeds %d days", ErrBadRequest, int(s.maxHistory/(24*time.Hour)))
	}
	if s.rates.Mode() != domain.ModeOnline || s.history == nil {
		return s.rates.HistoricalRates(ctx, f, t, start, end)
	}
	return s.history.HistoricalRates(ctx, f, t, start, end)
}

func (s *RatesService) SwitchMode(mode string) error {
	m, err := domain.ParseMode(mode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	prev := s.rates.Mode()
	if err := s.rates.SwitchMode(m); err != nil {
		return err
	}
	if prev != m {
		s.log.Info("mode.switched", zap.String("from", string(prev)), zap.String("to", string(m)))
	}
	return nil
}

func (s *RatesService) Mode() domain.Mode { return s.rates.Mode() }

func (s *RatesService) CacheSummary(ctx context.Context) CacheSummary {
	if s.summary == nil {
		return CacheSummary{Rates: map[string]float64{}}
	}
	return s.summary.Summary(ctx)
}
