package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pulsetrack/services/patient-service/internal/config"
	"pulsetrack/services/patient-service/internal/domain"
	"pulsetrack/services/patient-service/internal/handler"
	"pulsetrack/services/patient-service/internal/repository"
	"pulsetrack/services/patient-service/internal/router"
	"pulsetrack/services/patient-service/internal/usecase"
	"pulsetrack/services/patient-service/migrations"
	"pulsetrack/services/patient-service/pkg/kafka"
	"pulsetrack/shared/billing"
	sharedcfg "pulsetrack/shared/config"
	"pulsetrack/shared/migrate"
	httpserver "pulsetrack/shared/server"

	"go.uber.org/zap"
)

const recoverBatch = 500

// Run wires the patient service and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) error {
	logger.Info("starting patient service",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("billing_addr", cfg.BillingAddr),
		zap.Duration("billing_deadline", cfg.BillingDeadline),
	)

	pool, err := sharedcfg.ConnectDB(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := migrate.Auto(ctx, cfg.AutoMigrate, pool, migrations.FS, logger); err != nil {
		return err
	}

	billingClient, err := billing.Dial(cfg.BillingAddr, cfg.BillingDeadline, logger)
	if err != nil {
		return err
	}
	defer billingClient.Close()

	producer := kafka.NewPatientEventProducer(kafka.ProducerConfig{
		Brokers:    cfg.KafkaBrokers,
		Topic:      cfg.KafkaTopic,
		MaxElapsed: cfg.PublishMaxElapsed,
	}, logger)

	patientRepo := repository.NewPatientRepository(pool)

	retrier := usecase.NewProvisioningRetrier(billingClient, patientRepo, usecase.RetrierConfig{
		Workers:    cfg.BillingRetryWorkers,
		QueueSize:  cfg.BillingRetryQueue,
		MaxElapsed: cfg.BillingRetryMaxElapsed,
	}, logger)
	retrier.Start()

	recoverPending(ctx, patientRepo, retrier, logger)

	patientUC := usecase.NewPatientUsecase(patientRepo, billingClient, producer, retrier, logger)
	patientHandler := handler.NewPatientHandler(patientUC, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.SetupRoutes(patientHandler, pool.Ping, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := httpserver.ListenAndServe(ctx, srv, 10*time.Second, logger)

	// The HTTP server no longer accepts work; drain the background paths.
	retrier.Stop(15 * time.Second)
	closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := producer.Close(closeCtx); err != nil {
		logger.Warn("kafka producer close", zap.Error(err))
	}
	return serveErr
}

// recoverPending re-queues patients left PENDING by a previous process.
func recoverPending(ctx context.Context, repo *repository.PatientRepository, retrier *usecase.ProvisioningRetrier, logger *zap.Logger) {
	pending, err := repo.ListByBillingStatus(ctx, domain.BillingPending, recoverBatch)
	if err != nil {
		logger.Warn("could not load pending patients", zap.Error(err))
		return
	}
	queued := 0
	for _, p := range pending {
		if retrier.Enqueue(usecase.ProvisionJob{PatientID: p.ID, Name: p.Name, Email: p.Email}) {
			queued++
		}
	}
	if len(pending) > 0 {
		logger.Info("re-queued pending billing provisioning",
			zap.Int("pending", len(pending)),
			zap.Int("queued", queued),
		)
	}
}
