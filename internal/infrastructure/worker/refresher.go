package worker

import (
	"context"
	"sort"
	"time"

	"fxrates-engine/internal/adapters/logctx"
	"fxrates-engine/internal/application"
	"fxrates-engine/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RatesSource is the slice of the rates service the refresher drives.
type RatesSource interface {
	Mode() domain.Mode
	LatestRates(ctx context.Context, base string) (map[string]float64, error)
	LatestRate(ctx context.Context, from, to string) (domain.RateQuote, error)
	CacheSummary(ctx context.Context) application.CacheSummary
}

// Refresher periodically re-fetches the snapshot and every cached pair while the service is online.
// It never changes the mode.
type Refresher struct {
	Rates       RatesSource
	Base        string
	Every       time.Duration
	CallTimeout time.Duration
	Log         *zap.Logger
}

func (w *Refresher) logger() *zap.Logger {
	if w.Log == nil {
		return zap.NewNop()
	}
	return w.Log
}

func (w *Refresher) defaults() {
	if w.Every <= 0 {
		w.Every = 15 * time.Minute
	}
	if w.CallTimeout <= 0 {
		w.CallTimeout = 10 * time.Second
	}
	if w.Base == "" {
		w.Base = "EUR"
	}
}

func (w *Refresher) Start(ctx context.Context) {
	log := w.logger()
	w.defaults()

	t := time.NewTicker(w.Every)
	defer t.Stop()

	log.Info("refresher.started", zap.Duration("every", w.Every), zap.String("base", w.Base))
	for {
		select {
		case <-ctx.Done():
			log.Info("refresher.stopped")
			return
		case <-t.C:
			w.Tick(logctx.WithTraceID(ctx, uuid.NewString()))
		}
	}
}

// Tick runs one refresh round and reports how many pairs were refreshed.
func (w *Refresher) Tick(ctx context.Context) int {
	log := logctx.From(ctx, w.logger())
	defer func() {
		if r := recover(); r != nil {
			log.Error("refresher.panic", zap.Any("r", r))
		}
	}()

	w.defaults()
	if mode := w.Rates.Mode(); mode != domain.ModeOnline {
		log.Debug("refresher.skipped", zap.String("mode", string(mode)))
		return 0
	}

	c, cancel := context.WithTimeout(ctx, w.CallTimeout)
	if _, err := w.Rates.LatestRates(c, w.Base); err != nil {
		log.Warn("refresher.snapshot_failed", zap.String("base", w.Base), zap.Error(err))
	}
	cancel()

	keys := make([]string, 0)
	for k := range w.Rates.CacheSummary(ctx).Rates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	refreshed := 0
	for _, k := range keys {
		if ctx.Err() != nil {
			break
		}
		from, to, ok := domain.SplitPairKey(k)
		if !ok {
			continue
		}
		c, cancel := context.WithTimeout(ctx, w.CallTimeout)
		_, err := w.Rates.LatestRate(c, from, to)
		cancel()
		if err != nil {
			log.Warn("refresher.pair_failed", zap.String("pair", k), zap.Error(err))
			continue
		}
		refreshed++
	}
	log.Info("refresher.done", zap.Int("pairs", len(keys)), zap.Int("refreshed", refreshed))
	return refreshed
}
