package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"pulsetrack/services/billing-service/internal/config"
	"pulsetrack/services/billing-service/internal/server"
	sharedcfg "pulsetrack/shared/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("Billing: No .env file found, relying on system env vars")
	}

	cfg := config.Load()

	logger, err := sharedcfg.NewLogger("billing-service")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Fatal("billing service failed", zap.Error(err))
	}
}
