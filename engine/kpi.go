package engine

import "rxsavings/claims"

// KpiSet holds the headline figures of a filtered view.
type KpiSet struct {
	Total   float64 `json:"total"`
	MCTotal float64 `json:"mc_total"`
	RxCt    int64   `json:"rx_ct"`
	Diff    float64 `json:"diff"`
	PerRx   Ratio   `json:"per_rx"`
	DiffPct Ratio   `json:"diff_pct"`
}

// Summarize computes the KPI set in one pass. Records are summed in partition
// order, then record order, so equal views give bit-identical results. An
// empty view has zero sums and NaN ratios.
func Summarize(v View) KpiSet {
	var t totals
	v.Each(func(r *claims.Record) { t.add(r) })
	return KpiSet{
		Total:   t.total,
		MCTotal: t.mcTotal,
		RxCt:    t.rxCt,
		Diff:    t.diff(),
		PerRx:   t.perRx(),
		DiffPct: ratio(t.diff(), t.total),
	}
}
