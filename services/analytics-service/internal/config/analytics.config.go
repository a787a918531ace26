package config

import (
	"time"

	sharedcfg "pulsetrack/shared/config"
)

type AppConfig struct {
	HTTPAddr     string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string
	AutoMigrate  bool
	DB           sharedcfg.DBConfig

	// PersistMaxElapsed bounds the retries spent storing a single event
	// before it is logged and skipped.
	PersistMaxElapsed time.Duration
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:          sharedcfg.GetEnv("HTTP_ADDR", ":4002"),
		KafkaBrokers:      sharedcfg.GetEnvSlice("KAFKA_BROKERS", []string{"kafka:9092"}),
		KafkaTopic:        sharedcfg.GetEnv("KAFKA_TOPIC", "patient"),
		KafkaGroup:        sharedcfg.GetEnv("KAFKA_GROUP_ID", "analytics-service"),
		AutoMigrate:       sharedcfg.GetEnvBool("DB_AUTO_MIGRATE", true),
		DB:                sharedcfg.LoadDBConfig("analytics"),
		PersistMaxElapsed: sharedcfg.GetEnvDuration("PERSIST_MAX_ELAPSED", 30*time.Second),
	}
}
