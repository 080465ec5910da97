package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rxsavings/claims"
)

var (
	// ErrInvertedDateRange is returned when both bounds are set and the start
	// falls after the end.
	ErrInvertedDateRange = errors.New("date range start is after end")
	// ErrUnknownTriState is returned for a tri-state value other than
	// "All", "true" or "false".
	ErrUnknownTriState = errors.New("unknown tri-state value")
)

// TriState filters a boolean column. The zero value, TriAll, applies no
// constraint.
type TriState uint8

const (
	TriAll TriState = iota
	TriYes
	TriNo
)

// AllLabel is the wire form of TriAll.
const AllLabel = "All"

// ParseTriState parses "All", "true" or "false" (case-insensitive). An empty
// string is TriAll.
func ParseTriState(s string) (TriState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return TriAll, nil
	case "true", "yes":
		return TriYes, nil
	case "false", "no":
		return TriNo, nil
	}
	return TriAll, fmt.Errorf("%w: %q", ErrUnknownTriState, s)
}

// Of returns the tri-state that matches only b.
func Of(b bool) TriState {
	if b {
		return TriYes
	}
	return TriNo
}

func (t TriState) String() string {
	switch t {
	case TriAll:
		return AllLabel
	case TriYes:
		return "true"
	case TriNo:
		return "false"
	}
	return fmt.Sprintf("TriState(%d)", uint8(t))
}

// Matches reports whether b satisfies the constraint.
func (t TriState) Matches(b bool) bool {
	switch t {
	case TriYes:
		return b
	case TriNo:
		return !b
	}
	return true
}

func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case TriYes:
		return []byte("true"), nil
	case TriNo:
		return []byte("false"), nil
	}
	return json.Marshal(AllLabel)
}

// UnmarshalJSON accepts "All", true, false, their string forms, or null.
func (t *TriState) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*t = TriAll
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*t = Of(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownTriState, data)
	}
	v, err := ParseTriState(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// DateRange bounds date_of_service inclusively. It only constrains when both
// bounds are set.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Between returns a fully bounded range.
func Between(start, end time.Time) DateRange {
	return DateRange{Start: &start, End: &end}
}

// Bounded reports whether both bounds are present.
func (d DateRange) Bounded() bool {
	return d.Start != nil && d.End != nil
}

type dateRangeJSON struct {
	Start *string `json:"start,omitempty"`
	End   *string `json:"end,omitempty"`
}

func (d DateRange) MarshalJSON() ([]byte, error) {
	var out dateRangeJSON
	if d.Start != nil {
		s := d.Start.Format(claims.DateLayout)
		out.Start = &s
	}
	if d.End != nil {
		s := d.End.Format(claims.DateLayout)
		out.End = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads {"start": "YYYY-MM-DD", "end": "YYYY-MM-DD"}. Missing,
// null or empty bounds are left unset.
func (d *DateRange) UnmarshalJSON(data []byte) error {
	var in dateRangeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode date range: %w", err)
	}
	start, err := parseBound(in.Start)
	if err != nil {
		return fmt.Errorf("date range start: %w", err)
	}
	end, err := parseBound(in.End)
	if err != nil {
		return fmt.Errorf("date range end: %w", err)
	}
	*d = DateRange{Start: start, End: end}
	return nil
}

func parseBound(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(claims.DateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FilterCriteria is the set of independently optional filters a dashboard
// request applies. The zero value selects every record.
type FilterCriteria struct {
	DateRange    DateRange `json:"date_range"`
	Affiliated   TriState  `json:"affiliated"`
	IsSpecial    TriState  `json:"is_special"`
	IsFTC        TriState  `json:"is_ftc"`
	DrugClasses  []string  `json:"drug_class_in,omitempty"`
	GenericNames []string  `json:"generic_name_in,omitempty"`
}

// UnmarshalJSON also reads product_in, the older name of generic_name_in.
// Names from both keys are combined.
func (c *FilterCriteria) UnmarshalJSON(data []byte) error {
	type plain FilterCriteria
	var in struct {
		plain
		ProductIn []string `json:"product_in"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = FilterCriteria(in.plain)
	c.GenericNames = append(c.GenericNames, in.ProductIn...)
	return nil
}

// Validate rejects an inverted date range and out-of-range tri-states. A
// range with a single bound is valid and applies no date filter.
func (c FilterCriteria) Validate() error {
	if c.DateRange.Bounded() && dayOf(*c.DateRange.Start).After(dayOf(*c.DateRange.End)) {
		return fmt.Errorf("%w: %s > %s", ErrInvertedDateRange,
			c.DateRange.Start.Format(claims.DateLayout), c.DateRange.End.Format(claims.DateLayout))
	}
	for name, t := range map[string]TriState{"affiliated": c.Affiliated, "is_special": c.IsSpecial, "is_ftc": c.IsFTC} {
		if t > TriNo {
			return fmt.Errorf("%w: %s=%d", ErrUnknownTriState, name, uint8(t))
		}
	}
	return nil
}

// dayOf truncates t to its calendar date in UTC.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
