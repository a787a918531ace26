package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pulsetrack/services/auth-service/internal/config"
	"pulsetrack/services/auth-service/internal/handler"
	"pulsetrack/services/auth-service/internal/repository"
	"pulsetrack/services/auth-service/internal/router"
	"pulsetrack/services/auth-service/internal/usecase"
	"pulsetrack/services/auth-service/migrations"
	"pulsetrack/shared/auth/pkg/jwtutil"
	sharedcfg "pulsetrack/shared/config"
	"pulsetrack/shared/migrate"
	httpserver "pulsetrack/shared/server"

	"go.uber.org/zap"
)

// Run wires the auth service and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) error {
	authority, err := jwtutil.NewAuthority(cfg.JWTSecret, cfg.TokenLifetime)
	if err != nil {
		return fmt.Errorf("token authority: %w", err)
	}

	pool, err := sharedcfg.ConnectDB(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := migrate.Auto(ctx, cfg.AutoMigrate, pool, migrations.FS, logger); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(pool)
	authUC := usecase.NewAuthUsecase(userRepo, authority, cfg.BcryptCost, logger)
	authHandler := handler.NewAuthHandler(authUC, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.SetupRoutes(authHandler, pool.Ping, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return httpserver.ListenAndServe(ctx, srv, 10*time.Second, logger)
}
