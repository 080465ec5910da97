package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"rxsavings/claims"
)

// Date layouts accepted for dos. Spreadsheet and pandas exports add a clock
// time or use US month/day order.
var dosLayouts = []string{
	claims.DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006",
	"01/02/2006",
}

// requiredCols must all be present in the header row. The drug name column
// is checked separately because it has an alias.
var requiredCols = []string{"dos", "drug_class", "total", "mc_total", "rx_ct"}

// CSVReader streams a claims CSV extract one row at a time.
type CSVReader struct {
	file    *os.File
	csv     *csv.Reader
	rowNum  int64
	colIdx  map[string]int // lowercase header → column index
	nameCol string         // "generic_name" or "product"
}

func NewCSVReader(path string) (*CSVReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	bufReader := bufio.NewReaderSize(file, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	r := &CSVReader{
		file:   file,
		csv:    reader,
		colIdx: make(map[string]int),
	}
	if err := r.readHeaders(); err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

func (r *CSVReader) readHeaders() error {
	headers, err := r.csv.Read()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	r.rowNum++

	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		// Unnamed pandas index column.
		if h == "" {
			continue
		}
		if _, dup := r.colIdx[h]; !dup {
			r.colIdx[h] = i
		}
	}

	var missing []string
	for _, col := range requiredCols {
		if _, ok := r.colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	switch {
	case r.has("generic_name"):
		r.nameCol = "generic_name"
	case r.has("product"):
		r.nameCol = "product"
	default:
		missing = append(missing, "generic_name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (r *CSVReader) has(col string) bool {
	_, ok := r.colIdx[col]
	return ok
}

// Next returns the next claim row, or io.EOF after the last one. Values are
// normalised (dates to YYYY-MM-DD, flags to bool) but not range checked.
func (r *CSVReader) Next() (claims.Row, error) {
	var row []string
	for {
		var err error
		row, err = r.csv.Read()
		if err != nil {
			return claims.Row{}, err
		}
		r.rowNum++
		if !blank(row) {
			break
		}
	}

	dos, err := parseDate(valAt(row, r.colIdx, "dos"))
	if err != nil {
		return claims.Row{}, fmt.Errorf("dos: %w", err)
	}

	out := claims.Row{
		DateOfService: dos.Format(claims.DateLayout),
		DrugClass:     valAt(row, r.colIdx, "drug_class"),
		GenericName:   valAt(row, r.colIdx, r.nameCol),
	}
	if out.Affiliated, err = boolAt(row, r.colIdx, "affiliated"); err != nil {
		return claims.Row{}, err
	}
	if out.IsSpecial, err = boolAt(row, r.colIdx, "is_special"); err != nil {
		return claims.Row{}, err
	}
	if out.IsFTC, err = boolAt(row, r.colIdx, "is_ftc"); err != nil {
		return claims.Row{}, err
	}
	if out.Total, err = floatAt(row, r.colIdx, "total"); err != nil {
		return claims.Row{}, err
	}
	if out.MCTotal, err = floatAt(row, r.colIdx, "mc_total"); err != nil {
		return claims.Row{}, err
	}
	if out.RxCt, err = intAt(row, r.colIdx, "rx_ct"); err != nil {
		return claims.Row{}, err
	}
	if out.NADAC, err = optFloat(row, r.colIdx, "nadac"); err != nil {
		return claims.Row{}, err
	}

	year, err := intAt(row, r.colIdx, "year")
	if err != nil {
		return claims.Row{}, err
	}
	month, err := intAt(row, r.colIdx, "month")
	if err != nil {
		return claims.Row{}, err
	}
	if year == 0 {
		year = int64(dos.Year())
	}
	if month == 0 {
		month = int64(dos.Month())
	}
	out.Year, out.Month = int32(year), int32(month)

	return out, nil
}

// RowNum returns the current CSV row number (1-based, header included).
func (r *CSVReader) RowNum() int64 {
	return r.rowNum
}

func (r *CSVReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dosLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Column access helpers. A missing column reads as the empty string.

func valAt(row []string, idx map[string]int, col string) string {
	if i, ok := idx[col]; ok && i < len(row) {
		return strings.ToValidUTF8(strings.TrimSpace(row[i]), "\uFFFD")
	}
	return ""
}

func boolAt(row []string, idx map[string]int, col string) (bool, error) {
	switch s := strings.ToLower(valAt(row, idx, col)); s {
	case "", "false", "f", "0", "no", "n":
		return false, nil
	case "true", "t", "1", "yes", "y":
		return true, nil
	default:
		return false, fmt.Errorf("%s: not a boolean: %q", col, s)
	}
}

func floatAt(row []string, idx map[string]int, col string) (float64, error) {
	f, err := optFloat(row, idx, col)
	if err != nil {
		return 0, err
	}
	if f == nil {
		return 0, nil
	}
	return *f, nil
}

func optFloat(row []string, idx map[string]int, col string) (*float64, error) {
	s := valAt(row, idx, col)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", col, err)
	}
	return &f, nil
}

// intAt accepts integral floats such as "3.0", which pandas writes for
// integer columns that contained nulls.
func intAt(row []string, idx map[string]int, col string) (int64, error) {
	s := valAt(row, idx, col)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%s: not an integer: %q", col, s)
	}
	return int64(f), nil
}
