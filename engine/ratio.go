package engine

import (
	"encoding/json"
	"math"
)

// Ratio is a derived quotient such as savings per Rx or a savings share. A
// zero denominator yields NaN rather than zero or an infinity; NaN fails every
// positivity filter and marshals to JSON null.
type Ratio float64

func ratio(num, den float64) Ratio {
	if den == 0 {
		return Ratio(math.NaN())
	}
	return Ratio(num / den)
}

// Valid reports whether the ratio is a finite number.
func (r Ratio) Valid() bool {
	f := float64(r)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Positive reports whether the ratio is a number greater than zero.
func (r Ratio) Positive() bool {
	return float64(r) > 0
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(r))
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	var f *float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f == nil {
		*r = Ratio(math.NaN())
		return nil
	}
	*r = Ratio(*f)
	return nil
}

// descending orders a before b when a is larger. NaN sorts after every number.
func descending(a, b float64) int {
	switch an, bn := math.IsNaN(a), math.IsNaN(b); {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}
