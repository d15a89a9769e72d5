package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbmdev/refopt/internal/domain"
)

func sampleMembers() []domain.ProductRef {
	return []domain.ProductRef{
		{ProductID: 1, Refint: "R1", UnitCost: 8, TrailingQty: 100, TrailingRevenue: 2000},
		{ProductID: 2, Refint: "R2", UnitCost: 9, TrailingQty: 20, TrailingRevenue: 400},
		{ProductID: 3, Refint: "R3", UnitCost: 12, TrailingQty: 0, TrailingRevenue: 0},
	}
}

func TestComputeWeights(t *testing.T) {
	w := ComputeWeights(sampleMembers())

	assert.Equal(t, 120.0, w.TotalQty)
	assert.Equal(t, 2400.0, w.TotalRevenue)
	assert.InDelta(t, 20.0, w.WeightedSalePrice, 1e-9)
	// (8*100 + 9*20) / 120
	assert.InDelta(t, 8.1667, w.WeightedUnitCost, 1e-3)
	assert.Equal(t, 8.0, w.MinUnitCost)
}

func TestComputeWeights_IgnoresZeroCostForFloor(t *testing.T) {
	members := []domain.ProductRef{
		{ProductID: 1, UnitCost: 0, TrailingQty: 10, TrailingRevenue: 100},
		{ProductID: 2, UnitCost: 5, TrailingQty: 10, TrailingRevenue: 100},
	}

	w := ComputeWeights(members)
	assert.Equal(t, 5.0, w.MinUnitCost)
}

func TestComputeWeights_NoSales(t *testing.T) {
	members := []domain.ProductRef{
		{ProductID: 1, UnitCost: 4},
		{ProductID: 2, UnitCost: 6},
	}

	w := ComputeWeights(members)
	assert.Zero(t, w.WeightedSalePrice)
	assert.Equal(t, 4.0, w.MinUnitCost)
	// without volume the weighted cost falls back to the floor
	assert.Equal(t, 4.0, w.WeightedUnitCost)
}

func TestSelectReferences_UnitCostStrategy(t *testing.T) {
	members := sampleMembers()
	w := ComputeWeights(members)

	sel := SelectReferences(members, w, KeepByUnitCost, 1)

	require.Len(t, sel.Kept, 1)
	assert.Equal(t, int64(1), sel.Kept[0].ProductID)

	require.Len(t, sel.LowSales, 1)
	assert.Equal(t, int64(2), sel.LowSales[0].ProductID)
	// (20 - 8) * 20
	assert.Equal(t, 240.0, sel.LowSales[0].Gain)

	require.Len(t, sel.NoSales, 1)
	assert.Equal(t, int64(3), sel.NoSales[0].ProductID)
	assert.Zero(t, sel.NoSales[0].Gain)
}

func TestSelectReferences_ZeroCostRanksLast(t *testing.T) {
	members := []domain.ProductRef{
		{ProductID: 1, UnitCost: 0, TrailingQty: 50, TrailingRevenue: 500},
		{ProductID: 2, UnitCost: 7, TrailingQty: 50, TrailingRevenue: 500},
	}
	w := ComputeWeights(members)

	sel := SelectReferences(members, w, KeepByUnitCost, 1)
	require.Len(t, sel.Kept, 1)
	assert.Equal(t, int64(2), sel.Kept[0].ProductID)
}

func TestSelectReferences_VolumeStrategy(t *testing.T) {
	members := sampleMembers()
	w := ComputeWeights(members)

	sel := SelectReferences(members, w, KeepByVolume, 1)
	require.Len(t, sel.Kept, 1)
	assert.Equal(t, int64(1), sel.Kept[0].ProductID)
}

func TestSelectReferences_KeepCountExceedsMembers(t *testing.T) {
	members := sampleMembers()
	w := ComputeWeights(members)

	sel := SelectReferences(members, w, KeepByUnitCost, 10)
	assert.Len(t, sel.Kept, 3)
	assert.Empty(t, sel.LowSales)
	assert.Empty(t, sel.NoSales)
}

func TestGainPotential_NonNegativeOnCostSpread(t *testing.T) {
	// Consolidating onto the cheapest reference can only improve the cost
	// basis, so the gain never goes negative at equal revenue.
	w := ComputeWeights(sampleMembers())
	gain := GainPotential(sampleMembers(), w)
	assert.GreaterOrEqual(t, gain, 0.0)
}

func TestGainPotential_ZeroWhenSingleCost(t *testing.T) {
	members := []domain.ProductRef{
		{ProductID: 1, UnitCost: 5, TrailingQty: 10, TrailingRevenue: 100},
		{ProductID: 2, UnitCost: 5, TrailingQty: 30, TrailingRevenue: 300},
	}
	w := ComputeWeights(members)
	assert.Zero(t, GainPotential(members, w))
}
