package optimize

import (
	"math"
	"time"

	"github.com/cbmdev/refopt/internal/domain"
	"github.com/cbmdev/refopt/internal/forecast"
)

// BuildProjection turns forecasted quantities into priced months with the
// coverage factor applied, plus totals and the scoring metadata block.
// avgQty12M is the trailing-12-month average monthly quantity, reused as the
// coverage denominator so projected months are judged against the same
// baseline as historical ones.
func BuildProjection(
	result *forecast.Result,
	eval forecast.Evaluation,
	w Weights,
	coverage CoverageModel,
	avgQty12M float64,
	now time.Time,
) domain.Projection6M {
	periods := FuturePeriods(now, len(result.Predictions))

	proj := domain.Projection6M{
		Months: make([]domain.ForecastMonth, 0, len(periods)),
		Metadata: domain.ForecastMetadata{
			Method:          result.Method,
			ModelQuality:    result.ModelQuality,
			QualityScore:    eval.QualityScore,
			ConfidenceLevel: eval.ConfidenceLevel,
			DataPoints:      eval.DataPoints,
			Slope:           result.Slope,
			RSquared:        result.RSquared,
			LowerBound:      result.LowerBound,
			UpperBound:      result.UpperBound,
			Warnings:        eval.Warnings,
			Recommendations: eval.Recommendations,
			Summary:         eval.Summary,
			EvaluatedAt:     eval.EvaluatedAt,
		},
	}

	for i, p := range periods {
		qty := math.Max(0, math.Round(result.Predictions[i]))
		factor := coverage.Month(qty, avgQty12M)

		revenue := w.WeightedSalePrice * qty
		actualCost := (w.WeightedSalePrice - w.WeightedUnitCost) * qty
		optCost := (w.WeightedSalePrice - w.MinUnitCost) * qty * factor
		actualPMP := (w.WeightedSalePrice - w.WeightedPMP) * qty
		optPMP := (w.WeightedSalePrice - w.MinPMP) * qty * factor

		month := domain.ForecastMonth{
			Period:              p,
			Qty:                 qty,
			Revenue:             round2(revenue),
			ActualMarginCost:    round2(actualCost),
			OptimizedMarginCost: round2(optCost),
			GainCost:            round2(optCost - actualCost),
			ActualMarginPMP:     round2(actualPMP),
			OptimizedMarginPMP:  round2(optPMP),
			GainPMP:             round2(optPMP - actualPMP),
			CoverageFactor:      round2(factor),
		}
		proj.Months = append(proj.Months, month)

		proj.Totals.Qty += month.Qty
		proj.Totals.Revenue += month.Revenue
		proj.Totals.ActualMarginCost += month.ActualMarginCost
		proj.Totals.OptimizedMarginCost += month.OptimizedMarginCost
		proj.Totals.GainCost += month.GainCost
		proj.Totals.ActualMarginPMP += month.ActualMarginPMP
		proj.Totals.OptimizedMarginPMP += month.OptimizedMarginPMP
		proj.Totals.GainPMP += month.GainPMP
	}

	proj.Totals.Revenue = round2(proj.Totals.Revenue)
	proj.Totals.ActualMarginCost = round2(proj.Totals.ActualMarginCost)
	proj.Totals.OptimizedMarginCost = round2(proj.Totals.OptimizedMarginCost)
	proj.Totals.GainCost = round2(proj.Totals.GainCost)
	proj.Totals.ActualMarginPMP = round2(proj.Totals.ActualMarginPMP)
	proj.Totals.OptimizedMarginPMP = round2(proj.Totals.OptimizedMarginPMP)
	proj.Totals.GainPMP = round2(proj.Totals.GainPMP)

	proj.GrowthRate = growthRate(result, avgQty12M)
	return proj
}

// growthRate normalizes the forecast trend to a monthly rate and clamps it
// to plus or minus 50%, since anything beyond that is noise at this horizon.
func growthRate(result *forecast.Result, histAvg float64) float64 {
	var rate float64
	switch {
	case result.Slope != nil && histAvg > 0:
		rate = *result.Slope / math.Max(histAvg, 1)
	case len(result.Predictions) >= 2:
		n := len(result.Predictions)
		trend := (result.Predictions[n-1] - result.Predictions[0]) / float64(n-1)
		var sum float64
		for _, p := range result.Predictions {
			sum += p
		}
		rate = trend / math.Max(sum/float64(n), 1)
	}
	rate = clampF(rate, -0.5, 0.5)
	return math.Round(rate*10000) / 10000
}

// Synthesize merges the 12-month history with the 6-month projection into
// the 18-month synthesis block.
func Synthesize(history domain.History12M, proj domain.Projection6M) domain.Synthesis {
	s := domain.Synthesis{
		GainCost12M: history.Totals.GainCost,
		GainPMP12M:  history.Totals.GainPMP,
		GainCost6M:  proj.Totals.GainCost,
		GainPMP6M:   proj.Totals.GainPMP,
	}
	s.GainCost18M = round2(s.GainCost12M + s.GainCost6M)
	s.GainPMP18M = round2(s.GainPMP12M + s.GainPMP6M)
	s.ActualMarginCost18M = round2(history.Totals.ActualMarginCost + proj.Totals.ActualMarginCost)
	s.OptimizedMarginCost18M = round2(history.Totals.OptimizedMarginCost + proj.Totals.OptimizedMarginCost)
	s.ActualMarginPMP18M = round2(history.Totals.ActualMarginPMP + proj.Totals.ActualMarginPMP)
	s.OptimizedMarginPMP18M = round2(history.Totals.OptimizedMarginPMP + proj.Totals.OptimizedMarginPMP)

	if s.ActualMarginCost18M > 0 {
		s.ImprovementPct = round2(s.GainCost18M / s.ActualMarginCost18M * 100)
	}
	return s
}
