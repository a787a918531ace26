package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"pulsetrack/services/api-gateway/internal/config"
	"pulsetrack/services/api-gateway/internal/server"
	sharedcfg "pulsetrack/shared/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("Gateway: No .env file found, relying on system env vars")
	}

	cfg := config.Load()

	logger, err := sharedcfg.NewLogger("api-gateway")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Fatal("api gateway failed", zap.Error(err))
	}
	logger.Info("api gateway stopped")
}
