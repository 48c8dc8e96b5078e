package builder

import (
	"context"
	"fmt"

	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// setupPostgresHistory connects to the database, applies the migrations and
// returns the history store with a closer for its pool. The first ping is
// retried since the database often starts together with the service.
func setupPostgresHistory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.HistoryPostgres, func() error, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MinConns = int32(cfg.DBMinConns)
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.DBHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("create connection pool: %w", err)
	}
	closePool := func() error {
		pool.Close()
		return nil
	}

	if err := cfg.RetryCfg.Do(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("database connection pool established",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
	)

	if err := repository.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied", zap.String("path", cfg.MigrationsPath))

	return repository.NewHistoryPostgres(pool), closePool, nil
}
