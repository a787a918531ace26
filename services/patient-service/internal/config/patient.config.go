package config

import (
	"time"

	"pulsetrack/shared/billing"
	sharedcfg "pulsetrack/shared/config"
)

type AppConfig struct {
	HTTPAddr     string
	BillingAddr  string
	KafkaBrokers []string
	KafkaTopic   string
	AutoMigrate  bool
	DB           sharedcfg.DBConfig

	// BillingDeadline bounds each provisioning call made on the request path.
	BillingDeadline time.Duration
	// BillingRetryMaxElapsed bounds background re-provisioning of one patient.
	BillingRetryMaxElapsed time.Duration
	BillingRetryWorkers    int
	BillingRetryQueue      int

	PublishMaxElapsed time.Duration
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:               sharedcfg.GetEnv("HTTP_ADDR", ":4000"),
		BillingAddr:            sharedcfg.GetEnv("BILLING_SERVICE_ADDR", "billing-service:9001"),
		KafkaBrokers:           sharedcfg.GetEnvSlice("KAFKA_BROKERS", []string{"kafka:9092"}),
		KafkaTopic:             sharedcfg.GetEnv("KAFKA_TOPIC", "patient"),
		AutoMigrate:            sharedcfg.GetEnvBool("DB_AUTO_MIGRATE", true),
		DB:                     sharedcfg.LoadDBConfig("patients"),
		BillingDeadline:        sharedcfg.GetEnvDuration("BILLING_DEADLINE", billing.DefaultDeadline),
		BillingRetryMaxElapsed: sharedcfg.GetEnvDuration("BILLING_RETRY_MAX_ELAPSED", 2*time.Minute),
		BillingRetryWorkers:    sharedcfg.GetEnvInt("BILLING_RETRY_WORKERS", 2),
		BillingRetryQueue:      sharedcfg.GetEnvInt("BILLING_RETRY_QUEUE", 256),
		PublishMaxElapsed:      sharedcfg.GetEnvDuration("KAFKA_PUBLISH_MAX_ELAPSED", 30*time.Second),
	}
}
