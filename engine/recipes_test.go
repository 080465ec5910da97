package engine

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsavings/claims"
	"rxsavings/source"
)

func scenarioView(t *testing.T) (*Engine, View) {
	t.Helper()
	e := testEngine(t)
	return e, mustView(t, e, []string{"scenario"}, FilterCriteria{})
}

func TestClassSavingsShareScenario(t *testing.T) {
	e, v := scenarioView(t)

	rows := e.ClassSavingsShare(v)
	require.Len(t, rows, 2)

	assert.Equal(t, "B", rows[0].DrugClass)
	assert.Equal(t, 100.0, rows[0].Diff)
	assert.InDelta(t, 100.0/120, float64(rows[0].DiffPct), 1e-12)
	assert.Equal(t, int64(4), rows[0].RxCt)
	assert.InDelta(t, 25.0, float64(rows[0].AvgDiff), 1e-12)

	assert.Equal(t, "A", rows[1].DrugClass)
	assert.Equal(t, 20.0, rows[1].Diff)
	assert.Equal(t, 150.0, rows[1].Total)
	assert.InDelta(t, 20.0/120, float64(rows[1].DiffPct), 1e-12)
}

func TestClassSavingsShareSumsToOne(t *testing.T) {
	e := testEngine(t)
	v := mustView(t, e, e.Datasets(), FilterCriteria{})

	rows := e.ClassSavingsShare(v)
	require.NotEmpty(t, rows)

	var sum float64
	for _, r := range rows {
		assert.Greater(t, float64(r.DiffPct), 0.0, r.DrugClass)
		assert.Greater(t, r.Diff, 0.0, r.DrugClass)
		sum += float64(r.DiffPct)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// Generic has negative savings and is dropped.
	for _, r := range rows {
		assert.NotEqual(t, "Generic", r.DrugClass)
	}
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, float64(rows[i-1].DiffPct), float64(rows[i].DiffPct))
	}
}

func TestClassSavingsShareEmpty(t *testing.T) {
	e := testEngine(t)
	v := mustView(t, e, nil, FilterCriteria{})
	assert.Empty(t, e.ClassSavingsShare(v))
}

func TestGroupedDiffIsLinear(t *testing.T) {
	e := testEngine(t)
	v := mustView(t, e, e.Datasets(), FilterCriteria{})

	perClass := map[string]float64{}
	v.Each(func(r *claims.Record) { perClass[r.DrugClass] += r.Diff() })

	for _, row := range e.ClassBreakdown(v) {
		assert.InDelta(t, perClass[row.DrugClass], row.Diff, 1e-9, row.DrugClass)
		assert.InDelta(t, row.Total-row.MCTotal, row.Diff, 1e-9, row.DrugClass)
	}
}

func TestSizeBucket(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{math.NaN(), 1},
		{-10, 1},
		{0, 1},
		{49.99, 1},
		{50, 2},
		{99.99, 2},
		{100, 4},
		{499, 4},
		{500, 8},
		{999.5, 8},
		{1000, 16},
		{4999, 16},
		{5000, 32},
		{1e9, 32},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeBucket(tt.in), "SizeBucket(%v)", tt.in)
	}
}

func TestSizeBucketMonotone(t *testing.T) {
	prev := SizeBucket(0)
	for x := 0.0; x < 10000; x += 0.5 {
		got := SizeBucket(x)
		assert.Contains(t, SizeBuckets, got)
		if got < prev {
			t.Fatalf("SizeBucket(%v) = %d, below previous %d", x, got, prev)
		}
		prev = got
	}
}

func TestDrugScatter(t *testing.T) {
	e := testEngine(t)
	v := mustView(t, e, e.Datasets(), FilterCriteria{})

	points := e.DrugScatter(v)
	names := make([]string, len(points))
	for i, p := range points {
		names[i] = p.GenericName
		assert.Greater(t, p.Diff, 0.0)
		assert.True(t, p.AvgDiff.Positive())
		assert.Equal(t, SizeBucket(float64(p.AvgDiff)), p.Size)
	}
	// ATORVASTATIN loses money; METFORMIN keeps both of its rows grouped.
	assert.Equal(t, []string{"ALPHA", "BETA", "IMATINIB", "INSULIN GLARGINE", "METFORMIN"}, names)

	byName := map[string]DrugPoint{}
	for _, p := range points {
		byName[p.GenericName] = p
	}
	assert.Equal(t, 16, byName["IMATINIB"].Size)
	assert.InDelta(t, 7800.0/3, float64(byName["IMATINIB"].AvgDiff), 1e-9)
	assert.Equal(t, int64(4), byName["METFORMIN"].RxCt)
	assert.InDelta(t, 43.0, byName["METFORMIN"].Diff, 1e-9)
}

func TestZeroRxCountExcludedFromPerRxFilters(t *testing.T) {
	snap, err := source.NewSnapshot(source.Partition{ID: "zero", Records: []claims.Record{
		claim(day(2024, 1, 1), "A", "FREEBIE", 100, 10, 0),
		claim(day(2024, 1, 1), "A", "PAID", 100, 10, 1),
	}})
	require.NoError(t, err)
	e := New(snap)
	v := mustView(t, e, []string{"zero"}, FilterCriteria{})

	points := e.DrugScatter(v)
	require.Len(t, points, 1)
	assert.Equal(t, "PAID", points[0].GenericName)

	top, err := e.TopDrugs(v, 5, MetricPerRx)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.True(t, math.IsNaN(float64(top[0].PerRx)))
	assert.Equal(t, "PAID", top[1].GenericName)
}

func TestChargePerRx(t *testing.T) {
	e, v := scenarioView(t)

	rows := e.ChargePerRx(v)
	require.Len(t, rows, 4)

	assert.Equal(t, "B", rows[0].DrugClass)
	assert.Equal(t, CategoryAvgCharge, rows[0].Category)
	assert.InDelta(t, 50.0, float64(rows[0].Value), 1e-12)
	assert.Equal(t, "B", rows[1].DrugClass)
	assert.Equal(t, CategoryMCAvgCharge, rows[1].Category)
	assert.InDelta(t, 25.0, float64(rows[1].Value), 1e-12)

	assert.Equal(t, "A", rows[2].DrugClass)
	assert.InDelta(t, 50.0, float64(rows[2].Value), 1e-12)
	assert.InDelta(t, 130.0/3, float64(rows[3].Value), 1e-12)
	assert.InDelta(t, 20.0/120, float64(rows[3].DiffPct), 1e-12)
}

func TestMonthlySpend(t *testing.T) {
	e := testEngine(t)
	v := mustView(t, e, []string{"mixed"}, FilterCriteria{})

	months, err := e.MonthlySpend(v, 10)
	require.NoError(t, err)
	require.Len(t, months, 3)

	assert.Equal(t, day(2023, 11, 1), months[0].Month)
	assert.Equal(t, 9040.0, months[0].Total)
	assert.Equal(t, 908.0, months[0].NADAC)
	assert.Equal(t, int64(7), months[0].RxCt)
	assert.Equal(t, 978.0, months[0].NADACLine)

	// ATORVASTATIN has no NADAC price and is left out of December.
	assert.Equal(t, day(2023, 12, 1), months[1].Month)
	assert.Equal(t, 600.0, months[1].Total)
	assert.Equal(t, 400.0, months[1].NADACLine)

	assert.Equal(t, day(2024, 1, 1), months[2].Month)
	assert.Equal(t, 4.0, months[2].NADACLine)
}

func TestMonthlySpendFee(t *testing.T) {
	e := testEngine(t)
	v := mustView(t, e, []string{"mixed"}, FilterCriteria{})

	months, err := e.MonthlySpend(v, 0)
	require.NoError(t, err)
	for _, m := range months {
		assert.Equal(t, m.NADAC, m.NADACLine)
	}

	_, err = e.MonthlySpend(v, -1)
	assert.ErrorIs(t, err, ErrNegativeFee)
}

func TestMonthlySpendWithoutNADAC(t *testing.T) {
	e, v := scenarioView(t)

	months, err := e.MonthlySpend(v, 10)
	require.NoError(t, err)
	assert.Empty(t, months)
}

func TestTopDrugs(t *testing.T) {
	e := testEngine(t)
	v := mustView(t, e, e.Datasets(), FilterCriteria{})

	top, err := e.TopDrugs(v, 3, MetricDiff)
	require.NoError(t, err)
	require.Len(t, top, 3)
	// Ascending, largest saver last.
	assert.Equal(t, "BETA", top[0].GenericName)
	assert.Equal(t, "INSULIN GLARGINE", top[1].GenericName)
	assert.Equal(t, "IMATINIB", top[2].GenericName)

	all, err := e.TopDrugs(v, 100, MetricDiff)
	require.NoError(t, err)
	assert.Len(t, all, 6)
	assert.Equal(t, "ATORVASTATIN", all[0].GenericName)

	_, err = e.TopDrugs(v, 0, MetricDiff)
	assert.ErrorIs(t, err, ErrInvalidLimit)
	_, err = e.TopDrugs(v, 3, Metric("bogus"))
	assert.ErrorIs(t, err, ErrInvalidMetric)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricDiff, m)

	m, err = ParseMetric("per_rx")
	require.NoError(t, err)
	assert.Equal(t, MetricPerRx, m)

	_, err = ParseMetric("avg")
	assert.ErrorIs(t, err, ErrInvalidMetric)
}

func TestClassBreakdownKeepsLosses(t *testing.T) {
	e := testEngine(t)
	v := mustView(t, e, []string{"mixed"}, FilterCriteria{})

	rows := e.ClassBreakdown(v)
	require.Len(t, rows, 3)
	assert.Equal(t, "Diabetes", rows[0].DrugClass)
	assert.Equal(t, "Generic", rows[1].DrugClass)
	assert.Equal(t, -5.0, rows[1].Diff)
	assert.Equal(t, "Oncology", rows[2].DrugClass)
	assert.Equal(t, int64(6), rows[0].RxCt)
}

func TestRecipesMarshalNaNAsNull(t *testing.T) {
	row := ClassTotals{DrugClass: "A", PerRx: Ratio(math.NaN())}
	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"per_rx":null`)

	var back ClassTotals
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, math.IsNaN(float64(back.PerRx)))
}
