package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeScenario(t *testing.T) {
	_, v := scenarioView(t)

	k := Summarize(v)
	assert.Equal(t, 350.0, k.Total)
	assert.Equal(t, 230.0, k.MCTotal)
	assert.Equal(t, 120.0, k.Diff)
	assert.Equal(t, int64(7), k.RxCt)
	assert.InDelta(t, 120.0/7, float64(k.PerRx), 1e-12)
	assert.InDelta(t, 120.0/350, float64(k.DiffPct), 1e-12)
}

func TestSummarizeEmpty(t *testing.T) {
	e := testEngine(t)
	v := mustView(t, e, []string{"scenario"}, FilterCriteria{DrugClasses: []string{"none"}})

	k := Summarize(v)
	assert.Zero(t, k.Total)
	assert.Zero(t, k.MCTotal)
	assert.Zero(t, k.RxCt)
	assert.Zero(t, k.Diff)
	assert.True(t, math.IsNaN(float64(k.PerRx)))
	assert.True(t, math.IsNaN(float64(k.DiffPct)))
}

func TestSummarizeEquivalentCriteria(t *testing.T) {
	e := testEngine(t)
	ids := e.Datasets()

	a := Summarize(mustView(t, e, ids, FilterCriteria{
		DrugClasses: []string{"Diabetes", "A", "B"},
		Affiliated:  TriAll,
	}))
	b := Summarize(mustView(t, e, []string{"scenario", "mixed", "scenario"}, FilterCriteria{
		DrugClasses: []string{"B", "Diabetes", "A", "A"},
	}))

	// Bit-identical, not merely close.
	assert.Equal(t, math.Float64bits(a.Total), math.Float64bits(b.Total))
	assert.Equal(t, math.Float64bits(a.MCTotal), math.Float64bits(b.MCTotal))
	assert.Equal(t, math.Float64bits(float64(a.PerRx)), math.Float64bits(float64(b.PerRx)))
	assert.Equal(t, math.Float64bits(float64(a.DiffPct)), math.Float64bits(float64(b.DiffPct)))
	assert.Equal(t, a.RxCt, b.RxCt)
}

func TestSummarizeZeroRx(t *testing.T) {
	e := testEngine(t)
	v := mustView(t, e, []string{"mixed"}, FilterCriteria{
		DateRange: Between(day(2024, 1, 1), day(2024, 1, 31)),
	})
	require.Equal(t, 1, v.Count())

	k := Summarize(v)
	assert.Equal(t, 15.0, k.Diff)
	assert.False(t, k.PerRx.Valid())
	assert.InDelta(t, 0.6, float64(k.DiffPct), 1e-12)
}
