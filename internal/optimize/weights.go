package optimize

import (
	"math"
	"sort"

	"github.com/cbmdev/refopt/internal/domain"
)

// Keep strategies. The business never converged on one rule, so the tie-break
// is configuration, not code.
const (
	KeepByUnitCost         = "unit_cost"
	KeepByCostRevenueRatio = "cost_revenue_ratio"
	KeepByVolume           = "volume"
)

// Weights are the volume-weighted economics of one group.
type Weights struct {
	TotalQty          float64
	TotalRevenue      float64
	WeightedSalePrice float64
	WeightedUnitCost  float64
	MinUnitCost       float64
	// PMP figures are approximated from the purchase-cost figures when no
	// distinct average-cost basis is supplied. Not a guaranteed-correct
	// business figure.
	WeightedPMP float64
	MinPMP      float64
}

// ComputeWeights derives the group's weighted prices and cost floors.
func ComputeWeights(members []domain.ProductRef) Weights {
	var w Weights
	for _, m := range members {
		w.TotalQty += m.TrailingQty
		w.TotalRevenue += m.TrailingRevenue
	}

	if w.TotalQty > 0 {
		w.WeightedSalePrice = w.TotalRevenue / w.TotalQty
		var costQty float64
		for _, m := range members {
			costQty += m.UnitCost * m.TrailingQty
		}
		w.WeightedUnitCost = costQty / w.TotalQty
	}

	minCost := math.Inf(1)
	for _, m := range members {
		if m.UnitCost > 0 && m.UnitCost < minCost {
			minCost = m.UnitCost
		}
	}
	if !math.IsInf(minCost, 1) {
		w.MinUnitCost = minCost
	}
	if w.WeightedUnitCost == 0 {
		w.WeightedUnitCost = w.MinUnitCost
	}

	w.WeightedPMP = w.WeightedUnitCost
	w.MinPMP = w.MinUnitCost
	return w
}

// Selection is the split of a group into kept and to-delete references, with
// per-reference gain estimates on the deleted side.
type Selection struct {
	Kept     []domain.OptimizationRef
	LowSales []domain.OptimizationRef
	NoSales  []domain.OptimizationRef
}

// SelectReferences keeps the best keepCount members under the given strategy
// and prices the rest. Per-reference gain for a low-sales reference is
// (weighted sale price - min unit cost) * trailing qty; no-sales references
// carry zero gain.
func SelectReferences(members []domain.ProductRef, w Weights, strategy string, keepCount int) Selection {
	if keepCount < 1 {
		keepCount = 1
	}

	ranked := make([]domain.ProductRef, len(members))
	copy(ranked, members)
	sort.SliceStable(ranked, keepLess(ranked, strategy))

	if keepCount > len(ranked) {
		keepCount = len(ranked)
	}

	var sel Selection
	unitGain := w.WeightedSalePrice - w.MinUnitCost
	for i, m := range ranked {
		ref := domain.OptimizationRef{
			ProductID: m.ProductID,
			Refint:    m.Refint,
			UnitCost:  m.UnitCost,
			Revenue:   m.TrailingRevenue,
			Qty:       m.TrailingQty,
		}
		switch {
		case i < keepCount:
			sel.Kept = append(sel.Kept, ref)
		case m.TrailingRevenue > 0:
			ref.Gain = round2(unitGain * m.TrailingQty)
			sel.LowSales = append(sel.LowSales, ref)
		default:
			sel.NoSales = append(sel.NoSales, ref)
		}
	}
	return sel
}

// keepLess orders members so that the references worth keeping come first.
// Ties break on product id to keep evaluations deterministic.
func keepLess(members []domain.ProductRef, strategy string) func(i, j int) bool {
	switch strategy {
	case KeepByCostRevenueRatio:
		return func(i, j int) bool {
			ri := members[i].TrailingRevenue / math.Max(members[i].UnitCost, 1)
			rj := members[j].TrailingRevenue / math.Max(members[j].UnitCost, 1)
			if ri != rj {
				return ri > rj
			}
			return members[i].ProductID < members[j].ProductID
		}
	case KeepByVolume:
		return func(i, j int) bool {
			if members[i].TrailingQty != members[j].TrailingQty {
				return members[i].TrailingQty > members[j].TrailingQty
			}
			return members[i].ProductID < members[j].ProductID
		}
	default: // KeepByUnitCost
		return func(i, j int) bool {
			ci, cj := members[i].UnitCost, members[j].UnitCost
			// Zero-cost members have no known price and rank last.
			if (ci > 0) != (cj > 0) {
				return ci > 0
			}
			if ci != cj {
				return ci < cj
			}
			return members[i].ProductID < members[j].ProductID
		}
	}
}

// GainPotential is the immediate yearly gain from consolidating the whole
// group's volume onto the cheapest reference, against the actual margin
// realized by its members.
func GainPotential(members []domain.ProductRef, w Weights) float64 {
	var actual float64
	for _, m := range members {
		actual += m.TrailingRevenue - m.UnitCost*m.TrailingQty
	}
	simulated := (w.WeightedSalePrice - w.MinUnitCost) * w.TotalQty
	return round2(simulated - actual)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
