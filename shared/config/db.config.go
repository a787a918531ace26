package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBConfig is filled from DB_* variables; see LoadDBConfig.
type DBConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// LoadDBConfig prefers DATABASE_URL and otherwise assembles a DSN from the
// discrete DB_USER/DB_PASSWORD/DB_HOST/DB_PORT/DB_NAME variables.
func LoadDBConfig(defaultName string) DBConfig {
	url := GetEnv("DATABASE_URL", "")
	if url == "" {
		url = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			GetEnv("DB_USER", "postgres"),
			GetEnv("DB_PASSWORD", "postgres"),
			GetEnv("DB_HOST", "localhost"),
			GetEnv("DB_PORT", "5432"),
			GetEnv("DB_NAME", defaultName),
		)
	}
	return DBConfig{
		URL:             url,
		MaxConns:        GetEnvInt("DB_MAX_CONNS", 20),
		MinConns:        GetEnvInt("DB_MIN_CONNS", 2),
		MaxConnLifetime: GetEnvDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
		MaxConnIdleTime: GetEnvDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
	}
}

// ConnectDB opens a tuned pgx pool and pings it before returning.
func ConnectDB(ctx context.Context, cfg DBConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("db", poolConfig.ConnConfig.Database),
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
	)
	return pool, nil
}
