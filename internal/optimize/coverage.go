package optimize

import "math"

// Coverage bounds. Removing redundant references never captures all of their
// demand instantly, so realized consolidation is floored at 50% and capped at
// 100% of the theoretical volume.
const (
	coverageFloor   = 0.5
	coverageCeiling = 1.0
)

// CoverageModel bounds how much of a group's volume can realistically
// consolidate onto the kept references.
type CoverageModel struct {
	Global float64
}

// NewCoverageModel derives the global coverage factor from the share of the
// group's trailing volume already sold through the kept references.
func NewCoverageModel(keptQty, totalQty float64) CoverageModel {
	partKept := 0.0
	if totalQty > 0 {
		partKept = clampF(keptQty/totalQty, 0, 1)
	}
	global := clampF(0.6+0.4*math.Sqrt(partKept), coverageFloor, coverageCeiling)
	return CoverageModel{Global: global}
}

// Month scales the global factor by the month's relative volume: months with
// above-average demand realize more of the consolidation, quiet months less.
func (c CoverageModel) Month(qtyMonth, avgQty12M float64) float64 {
	if avgQty12M <= 0 {
		return c.Global
	}
	ratio := qtyMonth / avgQty12M
	if ratio < 0 {
		ratio = 0
	}
	return clampF(c.Global*math.Sqrt(ratio), coverageFloor, coverageCeiling)
}

func clampF(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
