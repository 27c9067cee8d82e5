package bootstrap

import (
	"context"
	"net/http"

	"fxrates-engine/internal/application"
	"fxrates-engine/internal/config"
	httpserver "fxrates-engine/internal/infrastructure/http"
	"fxrates-engine/internal/infrastructure/symbols"
	"fxrates-engine/internal/infrastructure/worker"

	"go.uber.org/zap"
)

// App is the fully wired engine shared by the binaries.
type App struct {
	Config    config.Config
	Log       *zap.Logger
	Catalog   *symbols.Catalog
	Service   *application.RatesService
	Server    *httpserver.Server
	Handler   http.Handler
	Refresher *worker.Refresher
}

// Build wires every component from cfg. The returned cleanup releases external clients.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	rp, err := ProvideRateProvider(cfg, log)
	if err != nil {
		return nil, func() {}, err
	}
	pairs, cleanup, err := ProvidePairStore(ctx, cfg, log)
	if err != nil {
		return nil, func() {}, err
	}
	catalog := ProvideCatalog(ctx, cfg, rp, log)
	snap := ProvideSnapshot(cfg, log)

	rc, offline, err := ProvideRateContext(cfg, rp, pairs, snap, log)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	svc := ProvideRatesService(cfg, catalog, rc, rp, offline, log)
	srv := ProvideHTTPServer(cfg, svc, catalog, log)

	log.Info("bootstrap.done",
		zap.String("env", cfg.Env),
		zap.String("provider", cfg.Provider),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("mode", string(svc.Mode())),
		zap.Int("currencies", catalog.Len()),
	)
	return &App{
		Config:    cfg,
		Log:       log,
		Catalog:   catalog,
		Service:   svc,
		Server:    srv,
		Handler:   httpserver.NewRouter(srv),
		Refresher: ProvideRefresher(cfg, svc, log),
	}, cleanup, nil
}
