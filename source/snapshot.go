// Package source provides the immutable, already-loaded claim datasets the
// engine reads from, and the loaders that build them from Parquet files or
// PostgreSQL.
package source

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"rxsavings/claims"
)

// ErrDatasetNotFound is matched by every *DatasetNotFoundError.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetNotFoundError reports an unknown dataset identifier.
type DatasetNotFoundError struct {
	ID string
}

func (e *DatasetNotFoundError) Error() string {
	return fmt.Sprintf("dataset not found: %q", e.ID)
}

func (e *DatasetNotFoundError) Is(target error) bool {
	return target == ErrDatasetNotFound
}

// Partition is the record set of one dataset (one PBM source file).
type Partition struct {
	ID      string
	Records []claims.Record
}

// Len returns the number of records in the partition.
func (p Partition) Len() int { return len(p.Records) }

// Snapshot is a fixed set of dataset partitions. It is never modified after
// construction, so any number of goroutines may read it without locking.
type Snapshot struct {
	parts map[string]Partition
	ids   []string
}

// NewSnapshot builds a snapshot from partitions. Partition IDs must be unique.
func NewSnapshot(parts ...Partition) (*Snapshot, error) {
	s := &Snapshot{parts: make(map[string]Partition, len(parts))}
	for _, p := range parts {
		if p.ID == "" {
			return nil, errors.New("partition with empty dataset id")
		}
		if _, dup := s.parts[p.ID]; dup {
			return nil, fmt.Errorf("duplicate dataset id %q", p.ID)
		}
		s.parts[p.ID] = p
	}
	s.ids = lo.Keys(s.parts)
	sort.Strings(s.ids)
	return s, nil
}

// Datasets returns the catalogue of dataset identifiers in sorted order.
func (s *Snapshot) Datasets() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Select returns the partitions named by ids in catalogue order. Repeated ids
// select a partition once; an empty selection returns no partitions.
func (s *Snapshot) Select(ids []string) ([]Partition, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.parts[id]; !ok {
			return nil, &DatasetNotFoundError{ID: id}
		}
		want[id] = true
	}

	out := make([]Partition, 0, len(want))
	for _, id := range s.ids {
		if want[id] {
			out = append(out, s.parts[id])
		}
	}
	return out, nil
}

// NumRecords returns the total record count across all partitions.
func (s *Snapshot) NumRecords() int {
	return lo.SumBy(lo.Values(s.parts), func(p Partition) int { return p.Len() })
}
