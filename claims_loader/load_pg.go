package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"rxsavings/claims"
	"rxsavings/source"
)

type pgOptions struct {
	path       string
	connStr    string
	dataset    string
	batchSize  int
	initSchema bool
	replace    bool
}

func loadParquetToPg(ctx context.Context, opts pgOptions, logger *zap.Logger) (int64, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.connStr)
	if err != nil {
		return 0, fmt.Errorf("parse connection: %w", err)
	}
	poolConfig.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return 0, fmt.Errorf("ping: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	if opts.initSchema {
		if err := source.InitSchema(ctx, pool); err != nil {
			return 0, err
		}
	}
	return copyParquet(ctx, pool, opts, logger)
}

// copyParquet streams a dataset file into the claims table, committing one
// transaction per batch. A failed batch rolls back only itself; batches
// already committed stay loaded. With replace set, the existing rows of the
// dataset are deleted inside the first transaction.
func copyParquet(ctx context.Context, pool *pgxpool.Pool, opts pgOptions, logger *zap.Logger) (int64, error) {
	start := time.Now()

	f, err := os.Open(opts.path)
	if err != nil {
		return 0, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[claims.Row](f)
	defer reader.Close()

	dataset := opts.dataset
	if dataset == "" {
		dataset = source.DatasetID(opts.path)
	}
	totalRows := reader.NumRows()
	logger.Info("copying dataset",
		zap.String("input", opts.path),
		zap.String("dataset", dataset),
		zap.Int64("rows", totalRows),
	)

	const readBatch = 8192
	buf := make([]claims.Row, readBatch)
	pending := make([]claims.Record, 0, opts.batchSize)

	var (
		copied   int64
		rowsRead int64
		batches  int
		lastLog  = time.Now()
	)

	flush := func() error {
		if len(pending) == 0 && !(opts.replace && batches == 0) {
			return nil
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if opts.replace && batches == 0 {
			tag, err := tx.Exec(ctx, "DELETE FROM claims WHERE dataset = $1", dataset)
			if err != nil {
				return fmt.Errorf("delete dataset %s: %w", dataset, err)
			}
			logger.Info("replaced existing rows", zap.String("dataset", dataset), zap.Int64("rows", tag.RowsAffected()))
		}

		n, err := source.CopyRecords(ctx, tx, dataset, pending)
		if err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		copied += n
		batches++
		pending = pending[:0]
		return nil
	}

	for {
		clear(buf)
		n, readErr := reader.Read(buf)

		for i := 0; i < n; i++ {
			rowsRead++
			rec, err := buf[i].Record()
			if err != nil {
				return copied, fmt.Errorf("parquet row %d: %w", rowsRead, err)
			}
			pending = append(pending, rec)

			if len(pending) >= opts.batchSize {
				if err := flush(); err != nil {
					return copied, err
				}
			}
		}

		if time.Since(lastLog) >= 5*time.Second && totalRows > 0 {
			logger.Info("progress",
				zap.Int64("rows", rowsRead),
				zap.Float64("pct", float64(rowsRead)/float64(totalRows)*100),
				zap.Float64("rows_per_sec", float64(rowsRead)/time.Since(start).Seconds()),
			)
			lastLog = time.Now()
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return copied, fmt.Errorf("read parquet: %w", readErr)
		}
	}

	if err := flush(); err != nil {
		return copied, err
	}

	logger.Info("copy done",
		zap.String("dataset", dataset),
		zap.Int64("rows", copied),
		zap.Int("transactions", batches),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return copied, nil
}
