package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"rxsavings/config"
	"rxsavings/engine"
	"rxsavings/source"
)

// loadSnapshot reads every dataset once at start-up. A data directory takes
// precedence over PostgreSQL when both are configured.
func loadSnapshot(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*source.Snapshot, error) {
	if cfg.DataDir != "" {
		if cfg.PGURL != "" {
			logger.Warn("data_dir and pg_url both set, using data_dir", zap.String("data_dir", cfg.DataDir))
		}
		return source.LoadParquetDir(ctx, cfg.DataDir, logger)
	}

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return source.LoadPostgres(ctx, pool, logger)
}

func newEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*engine.Engine, error) {
	snap, err := loadSnapshot(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return engine.New(snap,
		engine.WithClassNames(cfg.Classes()),
		engine.WithLogger(logger.Named("engine")),
	), nil
}
