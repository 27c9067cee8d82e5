package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"fxrates-engine/internal/domain"

	"github.com/stretchr/testify/mock"
)

var errNetwork = errors.New("network unreachable")

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeProvider struct {
	mu    sync.Mutex
	rates map[string]float64 // base-relative, base = 1
	at    time.Time
	err   error
	calls int
}

func (f *fakeProvider) LatestRate(_ context.Context, from, to domain.Currency) (domain.RateQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.RateQuote{}, f.err
	}
	fr, ok1 := f.rates[from.Code]
	tr, ok2 := f.rates[to.Code]
	if !ok1 || !ok2 {
		return domain.RateQuote{}, &domain.ProviderError{Op: "latest", Info: "missing rate"}
	}
	return domain.RateQuote{From: from, To: to, Rate: tr / fr, ObservedAt: f.at}, nil
}

func (f *fakeProvider) LatestRates(_ context.Context, base domain.Currency) (map[string]float64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, time.Time{}, f.err
	}
	b := f.rates[base.Code]
	out := map[string]float64{}
	for c, r := range f.rates {
		out[c] = r / b
	}
	return out, f.at, nil
}

func (f *fakeProvider) HistoricalRates(context.Context, domain.Currency, domain.Currency, time.Time, time.Time) ([]domain.RateQuote, error) {
	return []domain.RateQuote{}, nil
}

type pairVal struct {
	rate float64
	at   time.Time
}

type memPairs struct {
	mu sync.Mutex
	m  map[string]pairVal
}

func newMemPairs() *memPairs { return &memPairs{m: map[string]pairVal{}} }

func (p *memPairs) Put(_ context.Context, from, to string, rate float64, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[domain.PairKey(from, to)] = pairVal{rate, at}
}

func (p *memPairs) Rate(_ context.Context, from, to string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[domain.PairKey(from, to)]
	return v.rate, ok
}

func (p *memPairs) Timestamp(_ context.Context, from, to string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[domain.PairKey(from, to)]
	return v.at, ok
}

func (p *memPairs) All(context.Context) map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := map[string]float64{}
	for k, v := range p.m {
		out[k] = v.rate
	}
	return out
}

func (p *memPairs) LatestTimestamp(context.Context) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var latest time.Time
	for _, v := range p.m {
		if v.at.After(latest) {
			latest = v.at
		}
	}
	return latest, !latest.IsZero()
}

type memSnapshot struct {
	rates map[string]float64
	at    *time.Time
}

func (s *memSnapshot) Save(rates map[string]float64, at time.Time) {
	s.rates = rates
	s.at = &at
}

func (s *memSnapshot) LoadRates() map[string]float64 { return s.rates }
func (s *memSnapshot) LoadTimestamp() *time.Time     { return s.at }

type fakeCatalog map[string]string

func (c fakeCatalog) ByCode(code string) (domain.Currency, error) {
	n, ok := c[domain.NormalizeCode(code)]
	if !ok {
		return domain.Currency{}, &domain.NotFoundError{Kind: "code", Key: code}
	}
	return domain.NewCurrency(code, n)
}

func (c fakeCatalog) ByName(name string) (domain.Currency, error) {
	for code, n := range c {
		if n == name {
			return domain.NewCurrency(code, n)
		}
	}
	return domain.Currency{}, &domain.NotFoundError{Kind: "name", Key: name}
}

func (c fakeCatalog) All() []domain.Currency {
	var out []domain.Currency
	for code, n := range c {
		cur, _ := domain.NewCurrency(code, n)
		out = append(out, cur)
	}
	return out
}

type mockHistory struct{ mock.Mock }

func (m *mockHistory) HistoricalRates(ctx context.Context, from, to domain.Currency, start, end time.Time) ([]domain.RateQuote, error) {
	args := m.Called(ctx, from, to, start, end)
	quotes, _ := args.Get(0).([]domain.RateQuote)
	return quotes, args.Error(1)
}

func cur(code string) domain.Currency {
	c, err := domain.NewCurrency(code, "")
	if err != nil {
		panic(err)
	}
	return c
}
