package engine

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"rxsavings/claims"
)

// ErrNegativeFee is returned by MonthlySpend for a negative dispensing fee.
var ErrNegativeFee = errors.New("dispensing fee must be non-negative")

// ClassShare is one row of the savings-share-by-class recipe.
type ClassShare struct {
	DrugClass string  `json:"drug_class"`
	Label     string  `json:"label"`
	Total     float64 `json:"total"`
	RxCt      int64   `json:"rx_ct"`
	Diff      float64 `json:"diff"`
	AvgDiff   Ratio   `json:"avg_diff"`
	DiffPct   Ratio   `json:"diff_pct"`
}

// ClassSavingsShare groups by drug class and returns each class's share of
// the total savings. Classes without net savings (diff <= 0) are excluded
// before shares are computed, so the returned DiffPct values sum to one.
// Rows are ordered by DiffPct descending.
func (e *Engine) ClassSavingsShare(v View) []ClassShare {
	g := groupBy(v, func(r *claims.Record) string { return r.DrugClass })

	out := make([]ClassShare, 0, len(g.keys))
	var sumDiff float64
	for _, class := range g.keys {
		t := g.sums[class]
		if !(t.diff() > 0) {
			continue
		}
		sumDiff += t.diff()
		out = append(out, ClassShare{
			DrugClass: class,
			Label:     e.classes.Display(class),
			Total:     t.total,
			RxCt:      t.rxCt,
			Diff:      t.diff(),
			AvgDiff:   t.perRx(),
		})
	}
	for i := range out {
		out[i].DiffPct = ratio(out[i].Diff, sumDiff)
	}

	slices.SortFunc(out, func(a, b ClassShare) int {
		if c := descending(float64(a.DiffPct), float64(b.DiffPct)); c != 0 {
			return c
		}
		return cmp.Compare(a.DrugClass, b.DrugClass)
	})
	return out
}

// DrugPoint is one marker of the per-drug savings scatter.
type DrugPoint struct {
	GenericName string  `json:"generic_name"`
	DrugClass   string  `json:"drug_class"`
	Label       string  `json:"label"`
	Total       float64 `json:"total"`
	MCTotal     float64 `json:"mc_total"`
	Diff        float64 `json:"diff"`
	RxCt        int64   `json:"rx_ct"`
	AvgDiff     Ratio   `json:"avg_diff"`
	Size        int     `json:"size"`
}

// SizeBuckets lists every value SizeBucket can return, smallest first.
var SizeBuckets = []int{1, 2, 4, 8, 16, 32}

// SizeBucket maps savings per Rx to a marker-area code. The breakpoints are
// fixed presentation constants. NaN and negative input land in the smallest
// bucket.
func SizeBucket(avgDiff float64) int {
	switch {
	case math.IsNaN(avgDiff) || avgDiff < 50:
		return 1
	case avgDiff < 100:
		return 2
	case avgDiff < 500:
		return 4
	case avgDiff < 1000:
		return 8
	case avgDiff < 5000:
		return 16
	}
	return 32
}

type drugKey struct {
	name  string
	class string
}

// DrugScatter groups by (generic name, drug class) and keeps the drugs with
// positive total savings and positive savings per Rx. Rows are ordered by
// generic name, then class.
func (e *Engine) DrugScatter(v View) []DrugPoint {
	g := groupBy(v, func(r *claims.Record) drugKey { return drugKey{r.GenericName, r.DrugClass} })

	out := make([]DrugPoint, 0, len(g.keys))
	for _, k := range g.keys {
		t := g.sums[k]
		avg := t.perRx()
		if !(t.diff() > 0) || !avg.Positive() {
			continue
		}
		out = append(out, DrugPoint{
			GenericName: k.name,
			DrugClass:   k.class,
			Label:       e.classes.Display(k.class),
			Total:       t.total,
			MCTotal:     t.mcTotal,
			Diff:        t.diff(),
			RxCt:        t.rxCt,
			AvgDiff:     avg,
			Size:        SizeBucket(float64(avg)),
		})
	}

	slices.SortFunc(out, func(a, b DrugPoint) int {
		if c := cmp.Compare(a.GenericName, b.GenericName); c != 0 {
			return c
		}
		return cmp.Compare(a.DrugClass, b.DrugClass)
	})
	return out
}

// Charge series categories of ChargePerRx.
const (
	CategoryAvgCharge   = "avg_charge"
	CategoryMCAvgCharge = "mc_avg_charge"
)

// ChargeSeries is one long-form row of the charge-per-prescription recipe.
// Each class contributes one row per category.
type ChargeSeries struct {
	DrugClass string  `json:"drug_class"`
	Label     string  `json:"label"`
	Total     float64 `json:"total"`
	MCTotal   float64 `json:"mc_total"`
	Diff      float64 `json:"diff"`
	RxCt      int64   `json:"rx_ct"`
	AvgDiff   Ratio   `json:"avg_diff"`
	DiffPct   Ratio   `json:"diff_pct"`
	Category  string  `json:"category"`
	Value     Ratio   `json:"value"`
}

// ChargePerRx compares the average charge per prescription with the MCCPDC
// average per class. Classes are selected and normalized as in
// ClassSavingsShare, then each is unpivoted into an avg_charge and an
// mc_avg_charge row.
func (e *Engine) ChargePerRx(v View) []ChargeSeries {
	g := groupBy(v, func(r *claims.Record) string { return r.DrugClass })

	type classRow struct {
		class string
		t     *totals
	}
	var kept []classRow
	var sumDiff float64
	for _, class := range g.keys {
		t := g.sums[class]
		if !(t.diff() > 0) {
			continue
		}
		sumDiff += t.diff()
		kept = append(kept, classRow{class, t})
	}

	wide := make([]ChargeSeries, 0, len(kept))
	for _, k := range kept {
		wide = append(wide, ChargeSeries{
			DrugClass: k.class,
			Label:     e.classes.Display(k.class),
			Total:     k.t.total,
			MCTotal:   k.t.mcTotal,
			Diff:      k.t.diff(),
			RxCt:      k.t.rxCt,
			AvgDiff:   k.t.perRx(),
			DiffPct:   ratio(k.t.diff(), sumDiff),
		})
	}
	slices.SortFunc(wide, func(a, b ChargeSeries) int {
		if c := descending(float64(a.DiffPct), float64(b.DiffPct)); c != 0 {
			return c
		}
		return cmp.Compare(a.DrugClass, b.DrugClass)
	})

	out := make([]ChargeSeries, 0, 2*len(wide))
	for _, w := range wide {
		avg, mcAvg := w, w
		avg.Category = CategoryAvgCharge
		avg.Value = ratio(w.Total, float64(w.RxCt))
		mcAvg.Category = CategoryMCAvgCharge
		mcAvg.Value = ratio(w.MCTotal, float64(w.RxCt))
		out = append(out, avg, mcAvg)
	}
	return out
}

// MonthSpend is one month of the spend trend.
type MonthSpend struct {
	Month     time.Time `json:"month"`
	Total     float64   `json:"total"`
	MCTotal   float64   `json:"mc_total"`
	NADAC     float64   `json:"nadac"`
	RxCt      int64     `json:"rx_ct"`
	NADACLine float64   `json:"nadac_line"`
}

// MonthlySpend totals spend per calendar month over the records that carry a
// NADAC price, and derives the NADAC-plus-dispensing-fee comparison line
// rx_ct × feePerRx + Σnadac. Months are returned in ascending order.
func (e *Engine) MonthlySpend(v View, feePerRx int) ([]MonthSpend, error) {
	if feePerRx < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeFee, feePerRx)
	}

	priced := v.Where("nadac_present", func(r *claims.Record) bool { return r.NADAC != nil })
	g := groupBy(priced, (*claims.Record).MonthStart)

	out := make([]MonthSpend, 0, len(g.keys))
	for _, month := range g.keys {
		t := g.sums[month]
		out = append(out, MonthSpend{
			Month:     month,
			Total:     t.total,
			MCTotal:   t.mcTotal,
			NADAC:     t.nadac,
			RxCt:      t.rxCt,
			NADACLine: float64(t.rxCt)*float64(feePerRx) + t.nadac,
		})
	}
	slices.SortFunc(out, func(a, b MonthSpend) int { return a.Month.Compare(b.Month) })
	return out, nil
}
