// Package migrate applies the embedded goose migrations of a service.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const runTimeout = time.Minute

// Runner wraps a goose provider over a pgx pool.
type Runner struct {
	db       *sql.DB
	provider *goose.Provider
	logger   *zap.Logger
}

// New builds a runner for the SQL files at the root of fsys.
func New(pool *pgxpool.Pool, fsys fs.FS, logger *zap.Logger) (*Runner, error) {
	if pool == nil {
		return nil, errors.New("nil pool provided")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("configure goose: %w", err)
	}
	return &Runner{db: db, provider: provider, logger: logger}, nil
}

// Up applies pending migrations.
func (r *Runner) Up(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	results, err := r.provider.Up(ctx)
	for _, res := range results {
		r.logResult(res)
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	r.logger.Info("migrations applied", zap.Int("count", len(results)))
	return nil
}

// Down rolls back the latest migration, or everything above target when
// target > 0.
func (r *Runner) Down(ctx context.Context, target int64) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if target > 0 {
		results, err := r.provider.DownTo(ctx, target)
		for _, res := range results {
			r.logResult(res)
		}
		if err != nil {
			return fmt.Errorf("rollback to version %d: %w", target, err)
		}
		return nil
	}

	res, err := r.provider.Down(ctx)
	if res != nil {
		r.logResult(res)
	}
	if err != nil {
		return fmt.Errorf("rollback latest migration: %w", err)
	}
	return nil
}

func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	return statuses, nil
}

// Close releases the sql.DB bridge; the pgx pool stays open.
func (r *Runner) Close() error {
	return r.db.Close()
}

func (r *Runner) logResult(res *goose.MigrationResult) {
	fields := []zap.Field{
		zap.String("direction", res.Direction),
		zap.Duration("duration", res.Duration),
	}
	if res.Source != nil {
		fields = append(fields, zap.Int64("version", res.Source.Version), zap.String("path", res.Source.Path))
	}
	if res.Error != nil {
		r.logger.Error("migration failed", append(fields, zap.Error(res.Error))...)
		return
	}
	r.logger.Info("migration applied", fields...)
}

// Auto runs Up when enabled. Services call it at startup behind
// DB_AUTO_MIGRATE.
func Auto(ctx context.Context, enabled bool, pool *pgxpool.Pool, fsys fs.FS, logger *zap.Logger) error {
	if !enabled {
		return nil
	}
	r, err := New(pool, fsys, logger)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Up(ctx)
}
