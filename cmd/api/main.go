package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pantryscout/backend/config"
	"github.com/pantryscout/backend/internal/logger"
	"github.com/pantryscout/backend/internal/server"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	logger.Init()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := server.NewServices(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	srv := server.FromServices(cfg, services)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}
