package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"pulsetrack/services/analytics-service/internal/config"
	"pulsetrack/services/analytics-service/internal/server"
	sharedcfg "pulsetrack/shared/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("Analytics: No .env file found, relying on system env vars")
	}

	cfg := config.Load()

	logger, err := sharedcfg.NewLogger("analytics-service")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Fatal("analytics service failed", zap.Error(err))
	}
	logger.Info("analytics service stopped")
}
