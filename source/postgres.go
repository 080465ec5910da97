package source

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"rxsavings/claims"
)

//go:embed sql/schema.sql
var schema string

var claimColumns = []string{
	"dataset", "dos", "affiliated", "is_special", "is_ftc", "drug_class",
	"generic_name", "total", "mc_total", "rx_ct", "nadac", "year", "month",
}

// InitSchema creates the claims table if it does not exist.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Copier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

var (
	_ Copier = pgx.Tx(nil)
	_ Copier = (*pgxpool.Pool)(nil)
)

// CopyRecords bulk-inserts records into the claims table under dataset.
func CopyRecords(ctx context.Context, dst Copier, dataset string, records []claims.Record) (int64, error) {
	n, err := dst.CopyFrom(ctx, pgx.Identifier{"claims"}, claimColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := &records[i]
			return []any{
				dataset, r.DateOfService, r.Affiliated, r.IsSpecial, r.IsFTC, r.DrugClass,
				r.GenericName, r.Total, r.MCTotal, r.RxCt, r.NADAC, int32(r.Year), int32(r.Month),
			}, nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copy claims: %w", err)
	}
	return n, nil
}

// LoadPostgres reads the whole claims table into a snapshot, one partition
// per distinct dataset value.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	rows, err := pool.Query(ctx, `
		SELECT dataset, dos, affiliated, is_special, is_ftc, drug_class,
		       generic_name, total, mc_total, rx_ct, nadac, year, month
		FROM claims
		ORDER BY dataset, id`)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var (
		parts  []Partition
		rowNum int64
	)
	for rows.Next() {
		rowNum++
		var (
			dataset     string
			rec         claims.Record
			year, month int32
		)
		if err := rows.Scan(&dataset, &rec.DateOfService, &rec.Affiliated, &rec.IsSpecial,
			&rec.IsFTC, &rec.DrugClass, &rec.GenericName, &rec.Total, &rec.MCTotal,
			&rec.RxCt, &rec.NADAC, &year, &month); err != nil {
			return nil, fmt.Errorf("scan claims row %d: %w", rowNum, err)
		}
		rec.Year, rec.Month = int(year), int(month)
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("claims row %d (%s): %w", rowNum, dataset, err)
		}

		if len(parts) == 0 || parts[len(parts)-1].ID != dataset {
			parts = append(parts, Partition{ID: dataset})
		}
		last := &parts[len(parts)-1]
		last.Records = append(last.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	snap, err := NewSnapshot(parts...)
	if err != nil {
		return nil, err
	}
	logger.Info("postgres datasets loaded",
		zap.Int("datasets", len(parts)),
		zap.Int64("rows", rowNum),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}
