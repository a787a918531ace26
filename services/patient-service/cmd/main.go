package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"pulsetrack/services/patient-service/internal/config"
	"pulsetrack/services/patient-service/internal/server"
	sharedcfg "pulsetrack/shared/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("Patient: No .env file found, relying on system env vars")
	}

	cfg := config.Load()

	logger, err := sharedcfg.NewLogger("patient-service")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Fatal("patient service failed", zap.Error(err))
	}
	logger.Info("patient service stopped")
}
