package config

import (
	"time"

	"pulsetrack/shared/auth/pkg/jwtutil"
	sharedcfg "pulsetrack/shared/config"
)

type AppConfig struct {
	HTTPAddr      string
	JWTSecret     string
	TokenLifetime time.Duration
	BcryptCost    int
	AutoMigrate   bool
	DB            sharedcfg.DBConfig
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:      sharedcfg.GetEnv("HTTP_ADDR", ":4005"),
		JWTSecret:     sharedcfg.GetEnv("JWT_SECRET", ""),
		TokenLifetime: sharedcfg.GetEnvDuration("JWT_LIFETIME", jwtutil.DefaultLifetime),
		BcryptCost:    sharedcfg.GetEnvInt("BCRYPT_COST", 12),
		AutoMigrate:   sharedcfg.GetEnvBool("DB_AUTO_MIGRATE", true),
		DB:            sharedcfg.LoadDBConfig("auth"),
	}
}
