package engine

import "rxsavings/claims"

// totals accumulates the additive columns of a group.
type totals struct {
	total   float64
	mcTotal float64
	rxCt    int64
	nadac   float64
}

func (t *totals) add(r *claims.Record) {
	t.total += r.Total
	t.mcTotal += r.MCTotal
	t.rxCt += r.RxCt
	if r.NADAC != nil {
		t.nadac += *r.NADAC
	}
}

// diff is Σtotal − Σmc_total.
func (t *totals) diff() float64 {
	return t.total - t.mcTotal
}

// perRx is diff / Σrx_ct.
func (t *totals) perRx() Ratio {
	return ratio(t.diff(), float64(t.rxCt))
}

// grouping accumulates totals per key, remembering first-seen key order so
// that results are deterministic before any sort.
type grouping[K comparable] struct {
	keys []K
	sums map[K]*totals
}

func newGrouping[K comparable]() *grouping[K] {
	return &grouping[K]{sums: make(map[K]*totals)}
}

func (g *grouping[K]) add(k K, r *claims.Record) {
	t, ok := g.sums[k]
	if !ok {
		t = &totals{}
		g.sums[k] = t
		g.keys = append(g.keys, k)
	}
	t.add(r)
}

// groupBy scans v once and groups matching records by key.
func groupBy[K comparable](v View, key func(*claims.Record) K) *grouping[K] {
	g := newGrouping[K]()
	v.Each(func(r *claims.Record) { g.add(key(r), r) })
	return g
}
