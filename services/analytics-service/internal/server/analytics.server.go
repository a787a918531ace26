package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pulsetrack/services/analytics-service/internal/config"
	"pulsetrack/services/analytics-service/internal/handler"
	"pulsetrack/services/analytics-service/internal/repository"
	"pulsetrack/services/analytics-service/internal/router"
	"pulsetrack/services/analytics-service/internal/usecase"
	"pulsetrack/services/analytics-service/migrations"
	"pulsetrack/services/analytics-service/pkg/kafka"
	sharedcfg "pulsetrack/shared/config"
	"pulsetrack/shared/migrate"
	httpserver "pulsetrack/shared/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run starts the consumer loop and the read API; both stop when ctx is
// cancelled.
func Run(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) error {
	logger.Info("starting analytics service",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroup),
	)

	pool, err := sharedcfg.ConnectDB(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := migrate.Auto(ctx, cfg.AutoMigrate, pool, migrations.FS, logger); err != nil {
		return err
	}

	eventRepo := repository.NewEventRepository(pool)
	analyticsUC := usecase.NewAnalyticsUsecase(eventRepo, logger)

	consumer, err := kafka.NewPatientEventConsumer(kafka.ConsumerConfig{
		Brokers:           cfg.KafkaBrokers,
		Topic:             cfg.KafkaTopic,
		GroupID:           cfg.KafkaGroup,
		PersistMaxElapsed: cfg.PersistMaxElapsed,
	}, analyticsUC, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.SetupRoutes(handler.NewAnalyticsHandler(analyticsUC, logger), pool.Ping, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Warn("consumer close", zap.Error(err))
			}
		}()
		return consumer.Start(gctx)
	})
	g.Go(func() error {
		return httpserver.ListenAndServe(gctx, srv, 10*time.Second, logger)
	})
	return g.Wait()
}
