package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ZilDuck/nft-marketplace/internal/config"
	"github.com/ZilDuck/nft-marketplace/internal/config/di"
	"go.uber.org/zap"
)

func main() {
	config.Init()

	container, err := di.NewContainer(config.Get())
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}
	defer container.Delete()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Marketplace daemon started")

	if err := container.GetDaemon().Execute(ctx); err != nil {
		zap.L().With(zap.Error(err)).Error("Marketplace daemon stopped")
	}
}
