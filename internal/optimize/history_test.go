package optimize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbmdev/refopt/internal/domain"
)

var testNow = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

func TestTrailingPeriods(t *testing.T) {
	periods := TrailingPeriods(testNow, 3)
	assert.Equal(t, []string{"2024-12", "2025-01", "2025-02"}, periods)
}

func TestFuturePeriods(t *testing.T) {
	periods := FuturePeriods(testNow, 3)
	assert.Equal(t, []string{"2025-03", "2025-04", "2025-05"}, periods)
}

func testGroup() domain.Group {
	return domain.Group{
		Key: domain.GroupKey{GroupingID: 1, Quality: "OEM"},
		Members: []domain.ProductRef{
			{ProductID: 1, UnitCost: 8, TrailingQty: 60, TrailingRevenue: 1200},
			{ProductID: 2, UnitCost: 10, TrailingQty: 60, TrailingRevenue: 1200},
		},
	}
}

func TestReconstructHistory(t *testing.T) {
	group := testGroup()
	w := ComputeWeights(group.Members)
	coverage := NewCoverageModel(60, 120)

	facts := []domain.MonthlyFact{
		{ProductID: 1, Period: "2025-01", Qty: 30, Revenue: 600, MarginCost: 360, MarginPMP: 330},
		{ProductID: 2, Period: "2025-01", Qty: 30, Revenue: 600, MarginCost: 300, MarginPMP: 330},
		{ProductID: 1, Period: "2025-02", Qty: 30, Revenue: 600, MarginCost: 360, MarginPMP: 330},
		// unrelated product must not leak into the group
		{ProductID: 99, Period: "2025-02", Qty: 500, Revenue: 9999, MarginCost: 9999, MarginPMP: 9999},
	}

	history := ReconstructHistory(group, facts, w, coverage, testNow, 12)
	require.Len(t, history.Months, 12)

	// months without sales are materialized with zero figures
	first := history.Months[0]
	assert.Equal(t, "2024-03", first.Period)
	assert.Zero(t, first.Qty)
	assert.Zero(t, first.ActualMarginCost)

	jan := history.Months[10]
	require.Equal(t, "2025-01", jan.Period)
	assert.Equal(t, 60.0, jan.Qty)
	assert.Equal(t, 1200.0, jan.Revenue)
	assert.Equal(t, 660.0, jan.ActualMarginCost)
	// optimized margin prices the volume at the cost floor, discounted by
	// the month's coverage factor
	factor := coverage.Month(60, history.Totals.Qty/12)
	assert.InDelta(t, (w.WeightedSalePrice-w.MinUnitCost)*60*factor, jan.OptimizedMarginCost, 0.01)

	feb := history.Months[11]
	require.Equal(t, "2025-02", feb.Period)
	assert.Equal(t, 30.0, feb.Qty)

	assert.Equal(t, 90.0, history.Totals.Qty)
	assert.Equal(t, 1800.0, history.Totals.Revenue)
}

func TestReconstructHistory_NegativeMonthTreatedAsZero(t *testing.T) {
	group := testGroup()
	w := ComputeWeights(group.Members)
	coverage := NewCoverageModel(60, 120)

	facts := []domain.MonthlyFact{
		{ProductID: 1, Period: "2025-02", Qty: -5, Revenue: -100, MarginCost: -50},
	}

	history := ReconstructHistory(group, facts, w, coverage, testNow, 12)
	feb := history.Months[11]
	assert.Zero(t, feb.Qty)
	assert.Zero(t, feb.OptimizedMarginCost)
}

func TestHistorySeries(t *testing.T) {
	group := testGroup()
	facts := []domain.MonthlyFact{
		{ProductID: 1, Period: "2025-01", Qty: 30},
		{ProductID: 2, Period: "2025-01", Qty: 30},
		{ProductID: 1, Period: "2024-06", Qty: 10},
	}

	series := HistorySeries(group, facts, testNow, 12)
	require.Len(t, series, 12)
	assert.Equal(t, "2024-03", series[0].Period)
	assert.Equal(t, 60.0, series[10].Qty)
	assert.Equal(t, 10.0, series[3].Qty)
	assert.Zero(t, series[11].Qty)
}
