package optimize

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbmdev/refopt/internal/domain"
	"github.com/cbmdev/refopt/internal/forecast"
)

func steadyRows() []domain.ProductRef {
	return []domain.ProductRef{
		{ProductID: 1, Refint: "R1", GroupingID: 1, RawQuality: "OEM", UnitCost: 8, TrailingQty: 100, TrailingRevenue: 2000},
		{ProductID: 2, Refint: "R2", GroupingID: 1, RawQuality: "OEM", UnitCost: 9, TrailingQty: 20, TrailingRevenue: 400},
		{ProductID: 3, Refint: "R3", GroupingID: 1, RawQuality: "OEM", UnitCost: 12, TrailingQty: 0, TrailingRevenue: 0},
	}
}

func steadyFacts(now time.Time) []domain.MonthlyFact {
	var facts []domain.MonthlyFact
	for _, p := range TrailingPeriods(now, 12) {
		facts = append(facts,
			domain.MonthlyFact{ProductID: 1, Period: p, Qty: 8, Revenue: 160, MarginCost: 96, MarginPMP: 90},
			domain.MonthlyFact{ProductID: 2, Period: p, Qty: 2, Revenue: 40, MarginCost: 22, MarginPMP: 20},
		)
	}
	return facts
}

func newTestEvaluator() *Evaluator {
	return NewEvaluator(Config{}, forecast.NewEngine(forecast.Options{}), forecast.NewValidator())
}

func TestEvaluate_SteadyGroup(t *testing.T) {
	e := newTestEvaluator()
	items := e.Evaluate(steadyRows(), steadyFacts(testNow), testNow)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, int64(1), item.GroupingID)
	assert.Equal(t, "OEM", item.Quality)
	assert.Equal(t, 3, item.RefsTotal)
	assert.Equal(t, 8.0, item.MinUnitCost)
	assert.Equal(t, 20.0, item.WeightedSalePrice)

	// the cheapest priced reference is kept, the rest split by sales
	require.Len(t, item.RefsToKeep, 1)
	assert.Equal(t, int64(1), item.RefsToKeep[0].ProductID)
	require.Len(t, item.RefsToDeleteLowSales, 1)
	assert.Equal(t, int64(2), item.RefsToDeleteLowSales[0].ProductID)
	assert.Equal(t, 240.0, item.RefsToDeleteLowSales[0].Gain)
	require.Len(t, item.RefsToDeleteNoSales, 1)

	// simulated margin (20-8)*120 against realized 1420
	assert.Equal(t, 20.0, item.GainPotential)

	require.Len(t, item.History.Months, 12)
	assert.Equal(t, 120.0, item.History.Totals.Qty)

	require.Len(t, item.Projection.Months, 6)
	// a stable year goes through exponential smoothing
	assert.Equal(t, forecast.MethodHoltWinters, item.Projection.Metadata.Method)
	assert.GreaterOrEqual(t, item.Projection.Metadata.QualityScore, 0.6)
	for _, m := range item.Projection.Months {
		assert.InDelta(t, 10.0, m.Qty, 1.0)
		assert.GreaterOrEqual(t, m.CoverageFactor, 0.5)
		assert.LessOrEqual(t, m.CoverageFactor, 1.0)
	}

	assert.Equal(t, item.Synthesis.GainCost18M,
		round2(item.Synthesis.GainCost12M+item.Synthesis.GainCost6M))
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := newTestEvaluator()

	first := e.Evaluate(steadyRows(), steadyFacts(testNow), testNow)
	second := e.Evaluate(steadyRows(), steadyFacts(testNow), testNow)
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	// the evaluation timestamp is the only wall-clock dependent field
	first[0].Projection.Metadata.EvaluatedAt = time.Time{}
	second[0].Projection.Metadata.EvaluatedAt = time.Time{}
	assert.Equal(t, first, second)
}

func TestEvaluate_GrowingGroupHasPositiveGrowthRate(t *testing.T) {
	rows := steadyRows()
	var facts []domain.MonthlyFact
	for i, p := range TrailingPeriods(testNow, 12) {
		qty := float64(4 + i)
		facts = append(facts, domain.MonthlyFact{
			ProductID: 1, Period: p, Qty: qty, Revenue: qty * 20, MarginCost: qty * 12,
		})
	}

	e := newTestEvaluator()
	items := e.Evaluate(rows, facts, testNow)
	require.Len(t, items, 1)

	assert.Positive(t, items[0].GrowthRate)
	assert.LessOrEqual(t, items[0].GrowthRate, 0.5)
}

func TestEvaluate_SingleSaleMonth(t *testing.T) {
	// Only the most recent month carries a sale, so the forecast input is a
	// single point after the leading zeros are dropped. The score must stay
	// a real number in [0,1] and the result must serialize.
	latest := TrailingPeriods(testNow, 1)[0]
	facts := []domain.MonthlyFact{
		{ProductID: 1, Period: latest, Qty: 10, Revenue: 200, MarginCost: 120, MarginPMP: 110},
	}

	e := newTestEvaluator()
	items := e.Evaluate(steadyRows(), facts, testNow)
	require.Len(t, items, 1)

	item := items[0]
	meta := item.Projection.Metadata
	assert.Equal(t, forecast.MethodConstant, meta.Method)
	assert.Equal(t, 1, meta.DataPoints)
	require.False(t, math.IsNaN(meta.QualityScore))
	assert.GreaterOrEqual(t, meta.QualityScore, 0.0)
	assert.LessOrEqual(t, meta.QualityScore, 1.0)

	_, err := json.Marshal(item)
	require.NoError(t, err)
}

func TestEvaluate_DeadGroupForcesZeroProjection(t *testing.T) {
	rows := []domain.ProductRef{
		{ProductID: 1, GroupingID: 7, RawQuality: "PMQ", UnitCost: 5},
		{ProductID: 2, GroupingID: 7, RawQuality: "PMV", UnitCost: 6},
		{ProductID: 3, GroupingID: 7, RawQuality: "PMQ", UnitCost: 7},
	}

	e := newTestEvaluator()
	items := e.Evaluate(rows, nil, testNow)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "PM", item.Quality)
	assert.Equal(t, forecast.MethodEmpty, item.Projection.Metadata.Method)
	assert.Equal(t, forecast.ConfidenceNone, item.Projection.Metadata.ConfidenceLevel)
	assert.Zero(t, item.Projection.Metadata.QualityScore)
	// the examined window is reported even when every month is zero
	assert.Equal(t, 24, item.Projection.Metadata.DataPoints)
	assert.NotEmpty(t, item.Projection.Metadata.Warnings)

	for _, m := range item.Projection.Months {
		assert.Zero(t, m.Qty)
		assert.Zero(t, m.GainCost)
	}
	assert.Zero(t, item.Synthesis.GainCost6M)
	assert.Zero(t, item.GainPotential)
}

func TestEvaluate_GroupBelowMemberFloor(t *testing.T) {
	rows := []domain.ProductRef{
		{ProductID: 1, GroupingID: 1, RawQuality: "OEM", UnitCost: 8},
		{ProductID: 2, GroupingID: 1, RawQuality: "OEM", UnitCost: 9},
	}

	e := newTestEvaluator()
	items := e.Evaluate(rows, nil, testNow)
	assert.Empty(t, items)
}

func TestEvaluate_SeasonalHistory(t *testing.T) {
	rows := steadyRows()
	pattern := []float64{90, 95, 100, 110, 120, 130, 125, 115, 105, 100, 95, 90}
	var facts []domain.MonthlyFact
	for i, p := range TrailingPeriods(testNow, 24) {
		qty := pattern[i%12]
		facts = append(facts, domain.MonthlyFact{
			ProductID: 1, Period: p, Qty: qty, Revenue: qty * 20, MarginCost: qty * 12,
		})
	}

	e := newTestEvaluator()
	items := e.Evaluate(rows, facts, testNow)
	require.Len(t, items, 1)

	meta := items[0].Projection.Metadata
	assert.Equal(t, forecast.MethodSeasonal, meta.Method)
	assert.Equal(t, 24, meta.DataPoints)
}

func TestEvaluateGroup_UsesConfiguredStrategy(t *testing.T) {
	e := NewEvaluator(Config{KeepStrategy: KeepByVolume}, nil, nil)
	group := domain.Group{
		Key:     domain.GroupKey{GroupingID: 1, Quality: "OEM"},
		Members: steadyRows(),
	}

	item := e.EvaluateGroup(group, steadyFacts(testNow), testNow)
	require.Len(t, item.RefsToKeep, 1)
	assert.Equal(t, int64(1), item.RefsToKeep[0].ProductID)
}

func TestEvaluate_EmptyInput(t *testing.T) {
	e := newTestEvaluator()
	assert.Empty(t, e.Evaluate(nil, nil, testNow))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 3, cfg.MinGroupMembers)
	assert.Equal(t, 1, cfg.KeepCount)
	assert.Equal(t, KeepByUnitCost, cfg.KeepStrategy)
	assert.Equal(t, 6, cfg.ForecastHorizon)
	assert.Equal(t, 12, cfg.HistoryMonths)
	assert.Equal(t, 24, cfg.SeriesMonths)

	// the series window never undercuts the history window
	long := Config{HistoryMonths: 30}.withDefaults()
	assert.Equal(t, 30, long.SeriesMonths)
}
