package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fxrates-engine/internal/application"
	"fxrates-engine/internal/config"
	"fxrates-engine/internal/domain"
	"fxrates-engine/internal/infrastructure/filecache"
	httpserver "fxrates-engine/internal/infrastructure/http"
	"fxrates-engine/internal/infrastructure/httpx"
	"fxrates-engine/internal/infrastructure/logx"
	"fxrates-engine/internal/infrastructure/provider"
	redisstore "fxrates-engine/internal/infrastructure/redis"
	"fxrates-engine/internal/infrastructure/symbols"
	"fxrates-engine/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrCatalogEmpty = errors.New("currency catalog is empty")

// RemoteSource is a rate provider that also publishes the symbol table.
type RemoteSource interface {
	application.RateProvider
	symbols.Source
}

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() config.Config { return config.Load() }

func ProvideRateProvider(cfg config.Config, log *zap.Logger) (RemoteSource, error) {
	switch cfg.Provider {
	case "exchangeratesapi":
		if cfg.ExchangeAPIKey == "" {
			log.Warn("provider.no_api_key", zap.String("base", cfg.ExchangeAPIBase))
		}
		return &provider.ExchangeRatesAPIProvider{
			BaseURL: cfg.ExchangeAPIBase,
			APIKey:  cfg.ExchangeAPIKey,
			Client: &httpx.Client{
				HTTP:       &http.Client{Timeout: cfg.RequestTimeout},
				MaxElapsed: cfg.RetryMaxElapsed,
				Log:        log,
			},
			Log: log,
		}, nil
	case "fake", "":
		return provider.NewFake(nil), nil
	default:
		return nil, fmt.Errorf("unknown PROVIDER %q", cfg.Provider)
	}
}

// ProvideCatalog loads the symbol file, fetching it from src when absent.
// Lookups keep retrying the fetch every CatalogRetry while the catalog stays empty.
func ProvideCatalog(ctx context.Context, cfg config.Config, src symbols.Source, log *zap.Logger) *symbols.Catalog {
	c := symbols.NewCatalog(cfg.SymbolsFile, src, log)
	c.SetRetryInterval(cfg.CatalogRetry)
	c.Load(ctx)
	return c
}

func ProvideSnapshot(cfg config.Config, log *zap.Logger) *filecache.Snapshot {
	return filecache.NewSnapshot(cfg.SnapshotFile, log)
}

func ProvideRedisClient(cfg config.Config) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }, nil
}

// ProvidePairStore picks the pair cache backend from CACHE_BACKEND.
func ProvidePairStore(ctx context.Context, cfg config.Config, log *zap.Logger) (application.PairStore, func(), error) {
	switch cfg.CacheBackend {
	case "redis":
		client, cleanup, err := ProvideRedisClient(cfg)
		if err != nil {
			return nil, func() {}, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		log.Info("pair_cache.redis", zap.String("addr", cfg.RedisAddr), zap.String("prefix", cfg.RedisKeyPrefix))
		return redisstore.NewPairCache(client, cfg.RedisKeyPrefix, log), cleanup, nil
	case "file", "":
		return filecache.NewPairCache(cfg.PairCacheFile, log), func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
}

func ProvideRateContext(cfg config.Config, rp application.RateProvider, pairs application.PairStore, snap application.SnapshotStore, log *zap.Logger) (*application.RateContext, *application.OfflineStrategy, error) {
	mode, err := domain.ParseMode(cfg.StartMode)
	if err != nil {
		return nil, nil, fmt.Errorf("START_MODE: %w", err)
	}
	online := application.NewOnlineStrategy(rp, pairs, snap, nil, log)
	offline := application.NewOfflineStrategy(pairs, snap)
	rc, err := application.NewRateContext(online, offline, mode)
	if err != nil {
		return nil, nil, err
	}
	return rc, offline, nil
}

func ProvideRatesService(cfg config.Config, catalog application.CurrencyLookup, rc *application.RateContext, history application.HistoryProvider, summary application.Summarizer, log *zap.Logger) *application.RatesService {
	return application.NewRatesService(catalog, rc, history, summary,
		application.WithLogger(log),
		application.WithMaxHistorySpan(cfg.HistoryMaxSpan),
	)
}

func ProvideHTTPServer(cfg config.Config, svc *application.RatesService, catalog *symbols.Catalog, log *zap.Logger) *httpserver.Server {
	srv := httpserver.NewServer(svc, log)
	srv.SetDefaultBase(cfg.RefreshBase)
	srv.SetReadyCheck(func(context.Context) error {
		if len(catalog.All()) == 0 {
			return ErrCatalogEmpty
		}
		return nil
	})
	return srv
}

func ProvideRefresher(cfg config.Config, svc *application.RatesService, log *zap.Logger) *worker.Refresher {
	return &worker.Refresher{
		Rates:       svc,
		Base:        cfg.RefreshBase,
		Every:       cfg.RefreshEvery,
		CallTimeout: cfg.RequestTimeout + cfg.RetryMaxElapsed,
		Log:         log.With(zap.String("worker", "refresher")),
	}
}
