package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rxsavings/claims"
)

const readBatch = 8192

// DatasetID derives the dataset identifier from a file path: the base name
// without its extension.
func DatasetID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadParquetDir loads every *.parquet file in dir as one dataset partition.
// Files are decoded concurrently; the returned snapshot does not depend on
// completion order.
func LoadParquetDir(ctx context.Context, dir string, logger *zap.Logger) (*Snapshot, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("list parquet files: %w", err)
	}
	sort.Strings(paths)
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	parts := make([]Partition, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			p, err := ReadParquetPartition(ctx, path)
			if err != nil {
				return err
			}
			parts[i] = p
			logger.Debug("loaded dataset",
				zap.String("dataset", p.ID),
				zap.Int("rows", p.Len()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap, err := NewSnapshot(parts...)
	if err != nil {
		return nil, err
	}
	logger.Info("parquet datasets loaded",
		zap.String("dir", dir),
		zap.Int("datasets", len(parts)),
		zap.Int("rows", snap.NumRecords()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}

// ReadParquetPartition decodes one dataset file into a partition.
func ReadParquetPartition(ctx context.Context, path string) (Partition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Partition{}, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[claims.Row](f)
	defer reader.Close()

	p := Partition{
		ID:      DatasetID(path),
		Records: make([]claims.Record, 0, reader.NumRows()),
	}
	buf := make([]claims.Row, readBatch)
	var rowNum int64

	for {
		if err := ctx.Err(); err != nil {
			return Partition{}, err
		}
		clear(buf)
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			rowNum++
			rec, err := buf[i].Record()
			if err != nil {
				return Partition{}, fmt.Errorf("%s row %d: %w", filepath.Base(path), rowNum, err)
			}
			p.Records = append(p.Records, rec)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Partition{}, fmt.Errorf("read %s: %w", filepath.Base(path), readErr)
		}
	}
	return p, nil
}

// ParquetWriter writes claim rows to a dataset file.
//
// Zstd keeps the repeated class and drug names small; page statistics let
// query engines skip row groups on dos when the extract is date-sorted.
type ParquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[claims.Row]
	count  int
}

// NewParquetWriter creates a dataset file at path.
func NewParquetWriter(path string) (*ParquetWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[claims.Row](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("rxsavings", "1.0", ""),
	)
	return &ParquetWriter{file: file, writer: writer}, nil
}

// Write writes a batch of rows.
func (w *ParquetWriter) Write(rows []claims.Row) (int, error) {
	n, err := w.writer.Write(rows)
	w.count += n
	if err != nil {
		return n, fmt.Errorf("write parquet rows: %w", err)
	}
	return n, nil
}

// Close flushes the final row group and closes the file.
func (w *ParquetWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the number of rows written.
func (w *ParquetWriter) Count() int { return w.count }

// WriteParquet writes records to a new dataset file at path.
func WriteParquet(path string, records []claims.Record) error {
	w, err := NewParquetWriter(path)
	if err != nil {
		return err
	}
	rows := make([]claims.Row, len(records))
	for i := range records {
		rows[i] = claims.FromRecord(&records[i])
	}
	if _, err := w.Write(rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
