package optimize

import (
	"time"

	"github.com/cbmdev/refopt/internal/domain"
)

// TrailingPeriods lists the n complete calendar months before the month of
// now, oldest first, as YYYY-MM strings.
func TrailingPeriods(now time.Time, n int) []string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periods := make([]string, 0, n)
	for i := n; i >= 1; i-- {
		periods = append(periods, first.AddDate(0, -i, 0).Format("2006-01"))
	}
	return periods
}

// FuturePeriods lists n months starting with the month of now, as YYYY-MM.
func FuturePeriods(now time.Time, n int) []string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periods := make([]string, 0, n)
	for i := 0; i < n; i++ {
		periods = append(periods, first.AddDate(0, i, 0).Format("2006-01"))
	}
	return periods
}

// monthAgg is the group's monthly aggregate over its members' fact rows.
type monthAgg struct {
	qty        float64
	revenue    float64
	marginCost float64
	marginPMP  float64
}

// aggregateFacts sums fact rows per period for the given member set.
func aggregateFacts(facts []domain.MonthlyFact, memberIDs map[int64]struct{}) map[string]monthAgg {
	byPeriod := make(map[string]monthAgg)
	for _, f := range facts {
		if _, ok := memberIDs[f.ProductID]; !ok {
			continue
		}
		agg := byPeriod[f.Period]
		agg.qty += f.Qty
		agg.revenue += f.Revenue
		agg.marginCost += f.MarginCost
		agg.marginPMP += f.MarginPMP
		byPeriod[f.Period] = agg
	}
	return byPeriod
}

// ReconstructHistory rebuilds the trailing months of actual vs. optimized
// margin for one group. Months without sales appear with zero figures. The
// optimized margin assumes the whole month's volume at the weighted sale
// price against the group's floor cost, discounted by that month's coverage
// factor.
func ReconstructHistory(
	group domain.Group,
	facts []domain.MonthlyFact,
	w Weights,
	coverage CoverageModel,
	now time.Time,
	months int,
) domain.History12M {
	memberIDs := make(map[int64]struct{}, len(group.Members))
	for _, m := range group.Members {
		memberIDs[m.ProductID] = struct{}{}
	}
	byPeriod := aggregateFacts(facts, memberIDs)
	periods := TrailingPeriods(now, months)

	var totalQty float64
	for _, p := range periods {
		totalQty += byPeriod[p].qty
	}
	avgQty := 0.0
	if len(periods) > 0 {
		avgQty = totalQty / float64(len(periods))
	}

	out := domain.History12M{Months: make([]domain.HistoryMonth, 0, len(periods))}
	for _, p := range periods {
		agg := byPeriod[p]
		qty := agg.qty
		if qty < 0 {
			// Returns can push a month negative; the optimization baseline
			// treats it as a no-sale month.
			qty = 0
		}

		factor := coverage.Month(qty, avgQty)
		optCost := (w.WeightedSalePrice - w.MinUnitCost) * qty * factor
		optPMP := (w.WeightedSalePrice - w.MinPMP) * qty * factor

		month := domain.HistoryMonth{
			Period:              p,
			Qty:                 qty,
			Revenue:             round2(agg.revenue),
			ActualMarginCost:    round2(agg.marginCost),
			OptimizedMarginCost: round2(optCost),
			GainCost:            round2(optCost - agg.marginCost),
			ActualMarginPMP:     round2(agg.marginPMP),
			OptimizedMarginPMP:  round2(optPMP),
			GainPMP:             round2(optPMP - agg.marginPMP),
			OptimizedRevenue:    round2(w.WeightedSalePrice * qty * factor),
			CoverageFactor:      round2(factor),
		}
		out.Months = append(out.Months, month)

		out.Totals.Qty += month.Qty
		out.Totals.Revenue += month.Revenue
		out.Totals.ActualMarginCost += month.ActualMarginCost
		out.Totals.OptimizedMarginCost += month.OptimizedMarginCost
		out.Totals.GainCost += month.GainCost
		out.Totals.ActualMarginPMP += month.ActualMarginPMP
		out.Totals.OptimizedMarginPMP += month.OptimizedMarginPMP
		out.Totals.GainPMP += month.GainPMP
	}

	out.Totals.Revenue = round2(out.Totals.Revenue)
	out.Totals.ActualMarginCost = round2(out.Totals.ActualMarginCost)
	out.Totals.OptimizedMarginCost = round2(out.Totals.OptimizedMarginCost)
	out.Totals.GainCost = round2(out.Totals.GainCost)
	out.Totals.ActualMarginPMP = round2(out.Totals.ActualMarginPMP)
	out.Totals.OptimizedMarginPMP = round2(out.Totals.OptimizedMarginPMP)
	out.Totals.GainPMP = round2(out.Totals.GainPMP)

	return out
}

// HistorySeries converts the group's monthly aggregates into the ordered
// series the forecast engine consumes.
func HistorySeries(group domain.Group, facts []domain.MonthlyFact, now time.Time, months int) []domain.MonthlyFact {
	memberIDs := make(map[int64]struct{}, len(group.Members))
	for _, m := range group.Members {
		memberIDs[m.ProductID] = struct{}{}
	}
	byPeriod := aggregateFacts(facts, memberIDs)

	series := make([]domain.MonthlyFact, 0, months)
	for _, p := range TrailingPeriods(now, months) {
		agg := byPeriod[p]
		qty := agg.qty
		if qty < 0 {
			qty = 0
		}
		series = append(series, domain.MonthlyFact{Period: p, Qty: qty, Revenue: agg.revenue})
	}
	return series
}
