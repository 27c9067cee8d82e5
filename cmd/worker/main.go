package main

import (
	"context"
	"os/signal"
	"syscall"

	"fxrates-engine/internal/bootstrap"
	"fxrates-engine/internal/config"
	"fxrates-engine/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

// Refresher only: keeps the snapshot and the pair cache warm. Pair with CACHE_BACKEND=redis
// so API processes see the refreshed pairs.
func main() {
	log := logx.L()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.Build(ctx, config.Load(), log)
	if err != nil {
		log.Fatal("init worker", zap.Error(err))
	}
	defer cleanup()

	app.Refresher.Tick(ctx)
	app.Refresher.Start(ctx)
}
