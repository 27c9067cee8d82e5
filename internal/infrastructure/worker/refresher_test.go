package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fxrates-engine/internal/application"
	"fxrates-engine/internal/domain"

	"github.com/stretchr/testify/require"
)

type fakeRates struct {
	mu       sync.Mutex
	mode     domain.Mode
	cached   map[string]float64
	failPair string
	bases    []string
	pairs    []string
}

func (f *fakeRates) Mode() domain.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *fakeRates) LatestRates(_ context.Context, base string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bases = append(f.bases, base)
	return map[string]float64{base: 1}, nil
}

func (f *fakeRates) LatestRate(_ context.Context, from, to string) (domain.RateQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := domain.PairKey(from, to)
	f.pairs = append(f.pairs, k)
	if k == f.failPair {
		return domain.RateQuote{}, errors.New("provider down")
	}
	return domain.RateQuote{Rate: f.cached[k]}, nil
}

func (f *fakeRates) CacheSummary(context.Context) application.CacheSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]float64{}
	for k, v := range f.cached {
		out[k] = v
	}
	return application.CacheSummary{Rates: out}
}

func (f *fakeRates) calls() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bases...), append([]string(nil), f.pairs...)
}

func TestTick_RefreshesSnapshotAndEveryPair(t *testing.T) {
	t.Parallel()
	src := &fakeRates{
		mode:     domain.ModeOnline,
		cached:   map[string]float64{"USD->EUR": 0.9, "GBP->JPY": 190, "EUR->USD": 1.1},
		failPair: "GBP->JPY",
	}
	w := &Refresher{Rates: src, Base: "USD"}

	n := w.Tick(context.Background())

	require.Equal(t, 2, n)
	bases, pairs := src.calls()
	require.Equal(t, []string{"USD"}, bases)
	require.Equal(t, []string{"EUR->USD", "GBP->JPY", "USD->EUR"}, pairs)
}

func TestTick_SkipsWhileOffline(t *testing.T) {
	t.Parallel()
	src := &fakeRates{mode: domain.ModeOffline, cached: map[string]float64{"USD->EUR": 0.9}}
	w := &Refresher{Rates: src}

	require.Zero(t, w.Tick(context.Background()))
	bases, pairs := src.calls()
	require.Empty(t, bases)
	require.Empty(t, pairs)
	require.Equal(t, domain.ModeOffline, src.Mode())
}

func TestStart_TicksUntilCancelled(t *testing.T) {
	t.Parallel()
	src := &fakeRates{mode: domain.ModeOnline, cached: map[string]float64{"USD->EUR": 0.9}}
	w := &Refresher{Rates: src, Base: "EUR", Every: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		bases, _ := src.calls()
		return len(bases) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}
