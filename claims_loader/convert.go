package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"rxsavings/claims"
	"rxsavings/source"
)

type convertStats struct {
	rows       int
	inputSize  int64
	outputSize int64
}

// convert streams a claims CSV into a Parquet dataset file. Every row is
// validated before it is written so that a bad extract fails here rather than
// when the dashboard loads it.
func convert(ctx context.Context, inputPath, outputPath string, batchSize int, logger *zap.Logger) (convertStats, error) {
	start := time.Now()
	var stats convertStats

	reader, err := NewCSVReader(inputPath)
	if err != nil {
		return stats, fmt.Errorf("open CSV: %w", err)
	}
	defer reader.Close()

	writer, err := source.NewParquetWriter(outputPath)
	if err != nil {
		return stats, fmt.Errorf("create Parquet: %w", err)
	}
	closed := false
	defer func() {
		if !closed {
			writer.Close()
			os.Remove(outputPath)
		}
	}()

	if fi, err := os.Stat(inputPath); err == nil {
		stats.inputSize = fi.Size()
	}
	logger.Info("converting claims CSV",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.Int64("bytes", stats.inputSize),
	)

	batch := make([]claims.Row, 0, batchSize)
	lastLog := time.Now()

	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read CSV row %d: %w", reader.RowNum(), err)
		}
		if _, err := row.Record(); err != nil {
			return stats, fmt.Errorf("CSV row %d: %w", reader.RowNum(), err)
		}

		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if _, err := writer.Write(batch); err != nil {
				return stats, fmt.Errorf("write Parquet batch: %w", err)
			}
			batch = batch[:0]
		}

		if time.Since(lastLog) >= 5*time.Second {
			written := writer.Count() + len(batch)
			logger.Info("progress",
				zap.Int64("csv_rows", reader.RowNum()-1),
				zap.Int("rows", written),
				zap.Float64("rows_per_sec", float64(written)/time.Since(start).Seconds()),
			)
			lastLog = time.Now()
		}
	}

	if len(batch) > 0 {
		if _, err := writer.Write(batch); err != nil {
			return stats, fmt.Errorf("write final Parquet batch: %w", err)
		}
	}
	closed = true
	if err := writer.Close(); err != nil {
		os.Remove(outputPath)
		return stats, fmt.Errorf("close Parquet: %w", err)
	}

	stats.rows = writer.Count()
	if fi, err := os.Stat(outputPath); err == nil {
		stats.outputSize = fi.Size()
	}

	elapsed := time.Since(start)
	fields := []zap.Field{
		zap.String("dataset", source.DatasetID(outputPath)),
		zap.Int("rows", stats.rows),
		zap.Duration("elapsed", elapsed.Round(time.Millisecond)),
		zap.Int64("output_bytes", stats.outputSize),
	}
	if stats.inputSize > 0 && stats.outputSize > 0 {
		fields = append(fields, zap.Float64("compression", float64(stats.inputSize)/float64(stats.outputSize)))
	}
	logger.Info("conversion done", fields...)
	return stats, nil
}
