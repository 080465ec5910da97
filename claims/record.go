// Package claims holds the pharmacy claim-line model shared by the loaders,
// the record source and the aggregation engine.
package claims

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateLayout is the on-disk format of date_of_service.
const DateLayout = "2006-01-02"

// ErrInvalidRow is returned when a stored row violates the record invariants.
var ErrInvalidRow = errors.New("invalid claim row")

// Record is one dispensed prescription line. Rows may be pre-aggregated, in
// which case RxCt counts more than one prescription.
//
// Records are immutable once loaded: everything downstream reads them through
// pointers into a shared snapshot and must never write to them.
type Record struct {
	DateOfService time.Time
	Affiliated    bool
	IsSpecial     bool
	IsFTC         bool
	DrugClass     string
	GenericName   string
	Total         float64
	MCTotal       float64
	RxCt          int64
	NADAC         *float64 // nil when no NADAC reference cost is published
	Year          int
	Month         int
}

// Diff is the per-row savings, Total minus MCTotal.
func (r *Record) Diff() float64 {
	return r.Total - r.MCTotal
}

// Validate checks that amounts are finite and non-negative and that the
// month bucket is in range.
func (r *Record) Validate() error {
	switch {
	case r.RxCt < 0:
		return fmt.Errorf("%w: rx_ct %d is negative", ErrInvalidRow, r.RxCt)
	case !amount(r.Total):
		return fmt.Errorf("%w: total %v is not a non-negative amount", ErrInvalidRow, r.Total)
	case !amount(r.MCTotal):
		return fmt.Errorf("%w: mc_total %v is not a non-negative amount", ErrInvalidRow, r.MCTotal)
	case r.NADAC != nil && !amount(*r.NADAC):
		return fmt.Errorf("%w: nadac %v is not a non-negative amount", ErrInvalidRow, *r.NADAC)
	case r.Month < 1 || r.Month > 12:
		return fmt.Errorf("%w: month %d out of range", ErrInvalidRow, r.Month)
	}
	return nil
}

func amount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// MonthStart returns the first day of the record's (Year, Month) bucket.
func (r *Record) MonthStart() time.Time {
	return time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, time.UTC)
}
