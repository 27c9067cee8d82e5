package application

import (
	"context"
	"sync"
	"testing"

	"fxrates-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateContext_SwitchMode(t *testing.T) {
	t.Parallel()
	online, offline, _, _ := newStrategies(&fakeProvider{rates: map[string]float64{"EUR": 1, "USD": 1.1}})
	rc, err := NewRateContext(online, offline, domain.ModeOnline)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeOnline, rc.Mode())
	assert.Same(t, online, rc.Strategy())

	require.NoError(t, rc.SwitchMode(domain.ModeOffline))
	assert.Equal(t, domain.ModeOffline, rc.Mode())
	assert.Equal(t, "offline", rc.Name())

	err = rc.SwitchMode("sideways")
	require.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, domain.ModeOffline, rc.Mode())

	_, err = NewRateContext(online, offline, "")
	require.Error(t, err)
}

func TestRateContext_NoAutomaticDemotion(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{err: errNetwork}
	online, offline, _, _ := newStrategies(p)
	rc, err := NewRateContext(online, offline, domain.ModeOnline)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := rc.Convert(context.Background(), cur("USD"), cur("EUR"), 1)
		require.ErrorIs(t, err, errNetwork)
	}
	assert.Equal(t, domain.ModeOnline, rc.Mode())
	assert.Equal(t, 3, p.calls)
}

func TestRateContext_DelegatesToActiveStrategy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	online, offline, _, _ := newStrategies(&fakeProvider{rates: map[string]float64{"EUR": 1, "USD": 2}})
	rc, err := NewRateContext(online, offline, domain.ModeOffline)
	require.NoError(t, err)

	_, err = rc.Convert(ctx, cur("EUR"), cur("USD"), 1)
	require.ErrorIs(t, err, domain.ErrDataUnavailable)

	rc.SetStrategy(online)
	got, err := rc.Convert(ctx, cur("EUR"), cur("USD"), 3)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, got, 1e-12)

	rc.SetStrategy(offline)
	q, err := rc.Quote(ctx, cur("EUR"), cur("USD"))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, q.Rate, 1e-12)
}

type convertOnly struct{ RateStrategy }

func (convertOnly) Convert(context.Context, domain.Currency, domain.Currency, float64) (float64, error) {
	return 4.2, nil
}

func TestRateContext_QuoteFallsBackToConvert(t *testing.T) {
	t.Parallel()
	online, offline, _, _ := newStrategies(&fakeProvider{})
	rc, err := NewRateContext(online, offline, domain.ModeOnline)
	require.NoError(t, err)
	rc.SetStrategy(convertOnly{})

	q, err := rc.Quote(context.Background(), cur("USD"), cur("EUR"))
	require.NoError(t, err)
	assert.Equal(t, 4.2, q.Rate)
}

func TestRateContext_ConcurrentSwitching(t *testing.T) {
	t.Parallel()
	online, offline, _, _ := newStrategies(&fakeProvider{rates: map[string]float64{"EUR": 1, "USD": 1.1}})
	rc, err := NewRateContext(online, offline, domain.ModeOnline)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = rc.SwitchMode(domain.ModeOffline)
			} else {
				_ = rc.SwitchMode(domain.ModeOnline)
			}
		}(i)
		go func() {
			defer wg.Done()
			_ = rc.Mode()
			_, _ = rc.Convert(context.Background(), cur("USD"), cur("EUR"), 1)
		}()
	}
	wg.Wait()
	assert.Contains(t, []domain.Mode{domain.ModeOnline, domain.ModeOffline}, rc.Mode())
}
