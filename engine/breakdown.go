package engine

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"rxsavings/claims"
)

var (
	ErrInvalidMetric = errors.New("invalid ranking metric")
	ErrInvalidLimit  = errors.New("limit must be positive")
)

// Metric selects the value TopDrugs ranks by.
type Metric string

const (
	MetricDiff  Metric = "diff"
	MetricPerRx Metric = "per_rx"
)

// ParseMetric accepts "diff" (the default for an empty string) and "per_rx".
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricDiff:
		return MetricDiff, nil
	case MetricPerRx:
		return MetricPerRx, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMetric, s)
}

// DrugSavings is one bar of the top saving drugs chart.
type DrugSavings struct {
	GenericName string  `json:"generic_name"`
	Total       float64 `json:"total"`
	MCTotal     float64 `json:"mc_total"`
	RxCt        int64   `json:"rx_ct"`
	Diff        float64 `json:"diff"`
	PerRx       Ratio   `json:"per_rx"`
}

func (d DrugSavings) value(by Metric) float64 {
	if by == MetricPerRx {
		return float64(d.PerRx)
	}
	return d.Diff
}

// TopDrugs ranks generic drugs by the chosen metric and keeps the n largest.
// The result is returned smallest first so that a horizontal bar chart draws
// the largest saver on top.
func (e *Engine) TopDrugs(v View, n int, by Metric) ([]DrugSavings, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	if _, err := ParseMetric(string(by)); err != nil {
		return nil, err
	}

	g := groupBy(v, func(r *claims.Record) string { return r.GenericName })
	out := make([]DrugSavings, 0, len(g.keys))
	for _, name := range g.keys {
		t := g.sums[name]
		out = append(out, DrugSavings{
			GenericName: name,
			Total:       t.total,
			MCTotal:     t.mcTotal,
			RxCt:        t.rxCt,
			Diff:        t.diff(),
			PerRx:       t.perRx(),
		})
	}

	slices.SortFunc(out, func(a, b DrugSavings) int {
		if c := descending(a.value(by), b.value(by)); c != 0 {
			return c
		}
		return cmp.Compare(a.GenericName, b.GenericName)
	})
	if len(out) > n {
		out = out[:n]
	}
	slices.Reverse(out)
	return out, nil
}

// ClassTotals is one slice of the spend-by-class donut.
type ClassTotals struct {
	DrugClass string  `json:"drug_class"`
	Label     string  `json:"label"`
	Total     float64 `json:"total"`
	MCTotal   float64 `json:"mc_total"`
	RxCt      int64   `json:"rx_ct"`
	Diff      float64 `json:"diff"`
	PerRx     Ratio   `json:"per_rx"`
}

// ClassBreakdown totals every class in the view, savings or not, ordered by
// raw class code.
func (e *Engine) ClassBreakdown(v View) []ClassTotals {
	g := groupBy(v, func(r *claims.Record) string { return r.DrugClass })
	out := make([]ClassTotals, 0, len(g.keys))
	for _, class := range g.keys {
		t := g.sums[class]
		out = append(out, ClassTotals{
			DrugClass: class,
			Label:     e.classes.Display(class),
			Total:     t.total,
			MCTotal:   t.mcTotal,
			RxCt:      t.rxCt,
			Diff:      t.diff(),
			PerRx:     t.perRx(),
		})
	}
	slices.SortFunc(out, func(a, b ClassTotals) int { return cmp.Compare(a.DrugClass, b.DrugClass) })
	return out
}
