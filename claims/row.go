package claims

import (
	"fmt"
	"strings"
	"time"
)

// Row is the Parquet schema for one claim line. Every dataset file carries
// exactly these columns so partitions can be unioned without reconciliation.
//
//   - Dates are stored as YYYY-MM-DD strings, matching the source extracts.
//   - drug_class and generic_name dictionary-encode; a dataset typically has
//     16 classes and a few thousand drugs.
//   - nadac uses the Parquet null bitmap; it is absent for drugs without a
//     published NADAC price.
type Row struct {
	DateOfService string   `parquet:"dos"`
	Affiliated    bool     `parquet:"affiliated"`
	IsSpecial     bool     `parquet:"is_special"`
	IsFTC         bool     `parquet:"is_ftc"`
	DrugClass     string   `parquet:"drug_class"`
	GenericName   string   `parquet:"generic_name"`
	Product       *string  `parquet:"product,optional"` // older extracts name the drug column "product"
	Total         float64  `parquet:"total"`
	MCTotal       float64  `parquet:"mc_total"`
	RxCt          int64    `parquet:"rx_ct"`
	NADAC         *float64 `parquet:"nadac,optional"`
	Year          int32    `parquet:"year"`
	Month         int32    `parquet:"month"`
}

// Record converts a stored row into a validated Record. Year and month are
// derived from the date of service when the row leaves them at zero.
func (r *Row) Record() (Record, error) {
	dos, err := time.Parse(DateLayout, strings.TrimSpace(r.DateOfService))
	if err != nil {
		return Record{}, fmt.Errorf("%w: dos %q: %v", ErrInvalidRow, r.DateOfService, err)
	}

	name := r.GenericName
	if name == "" && r.Product != nil {
		name = *r.Product
	}

	rec := Record{
		DateOfService: dos,
		Affiliated:    r.Affiliated,
		IsSpecial:     r.IsSpecial,
		IsFTC:         r.IsFTC,
		DrugClass:     r.DrugClass,
		GenericName:   name,
		Total:         r.Total,
		MCTotal:       r.MCTotal,
		RxCt:          r.RxCt,
		Year:          int(r.Year),
		Month:         int(r.Month),
	}
	if r.NADAC != nil {
		v := *r.NADAC
		rec.NADAC = &v
	}
	if rec.Year == 0 {
		rec.Year = dos.Year()
	}
	if rec.Month == 0 {
		rec.Month = int(dos.Month())
	}

	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// FromRecord builds the storage row for a record.
func FromRecord(rec *Record) Row {
	row := Row{
		DateOfService: rec.DateOfService.Format(DateLayout),
		Affiliated:    rec.Affiliated,
		IsSpecial:     rec.IsSpecial,
		IsFTC:         rec.IsFTC,
		DrugClass:     rec.DrugClass,
		GenericName:   rec.GenericName,
		Total:         rec.Total,
		MCTotal:       rec.MCTotal,
		RxCt:          rec.RxCt,
		Year:          int32(rec.Year),
		Month:         int32(rec.Month),
	}
	if rec.NADAC != nil {
		v := *rec.NADAC
		row.NADAC = &v
	}
	return row
}
