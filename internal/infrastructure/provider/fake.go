package provider

import (
	"context"
	"fmt"
	"time"

	"fxrates-engine/internal/application"
	"fxrates-engine/internal/domain"
)

// Ensure Fake implements application.RateProvider.
var _ application.RateProvider = (*Fake)(nil)

var defaultFakeRates = map[string]float64{
	"EUR": 1.0,
	"USD": 1.10,
	"GBP": 0.85,
	"JPY": 160.0,
	"MXN": 20.0,
	"CHF": 0.95,
	"PLN": 4.30,
}

var defaultFakeNames = map[string]string{
	"EUR": "Euro",
	"USD": "United States Dollar",
	"GBP": "British Pound Sterling",
	"JPY": "Japanese Yen",
	"MXN": "Mexican Peso",
	"CHF": "Swiss Franc",
	"PLN": "Polish Złoty",
}

// Fake serves a fixed EUR-based table; used for PROVIDER=fake and transport tests.
type Fake struct {
	rates map[string]float64
	names map[string]string
	now   func() time.Time
}

// NewFake copies rates (EUR based). A nil map selects the built-in table.
func NewFake(rates map[string]float64) *Fake {
	if rates == nil {
		rates = defaultFakeRates
	}
	f := &Fake{rates: map[string]float64{}, names: map[string]string{}, now: time.Now}
	for c, r := range rates {
		f.rates[c] = r
		name := defaultFakeNames[c]
		if name == "" {
			name = c
		}
		f.names[c] = name
	}
	return f
}

func (f *Fake) Symbols(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.names))
	for c, n := range f.names {
		out[c] = n
	}
	return out, nil
}

func (f *Fake) LatestRate(_ context.Context, from, to domain.Currency) (domain.RateQuote, error) {
	return f.quote(from, to, domain.StartOfDayUTC(f.now()))
}

func (f *Fake) LatestRates(_ context.Context, base domain.Currency) (map[string]float64, time.Time, error) {
	b, ok := f.rates[base.Code]
	if !ok {
		return nil, time.Time{}, &domain.ProviderError{Op: "fake latest", Info: "missing rate for " + base.Code}
	}
	out := make(map[string]float64, len(f.rates))
	for c, r := range f.rates {
		out[c] = r / b
	}
	return out, domain.StartOfDayUTC(f.now()), nil
}

func (f *Fake) HistoricalRates(ctx context.Context, from, to domain.Currency, start, end time.Time) ([]domain.RateQuote, error) {
	var out []domain.RateQuote
	for _, d := range SampleDates(start, end) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		q, err := f.quote(from, to, d)
		if err != nil {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *Fake) quote(from, to domain.Currency, at time.Time) (domain.RateQuote, error) {
	fr, ok := f.rates[from.Code]
	if !ok {
		return domain.RateQuote{}, &domain.ProviderError{Op: "fake", Info: fmt.Sprintf("missing rate for %s", from.Code)}
	}
	tr, ok := f.rates[to.Code]
	if !ok {
		return domain.RateQuote{}, &domain.ProviderError{Op: "fake", Info: fmt.Sprintf("missing rate for %s", to.Code)}
	}
	return domain.RateQuote{From: from, To: to, Rate: tr / fr, ObservedAt: at}, nil
}
