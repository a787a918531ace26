package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"pulsetrack/services/auth-service/internal/config"
	"pulsetrack/services/auth-service/internal/server"
	sharedcfg "pulsetrack/shared/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("Auth: No .env file found, relying on system env vars")
	}

	cfg := config.Load()

	logger, err := sharedcfg.NewLogger("auth-service")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Fatal("auth service failed", zap.Error(err))
	}
	logger.Info("auth service stopped")
}
