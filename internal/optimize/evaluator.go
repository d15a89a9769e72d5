package optimize

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cbmdev/refopt/internal/domain"
	"github.com/cbmdev/refopt/internal/forecast"
)

// Config carries the business knobs of the evaluator. Zero values fall back
// to the defaults below.
type Config struct {
	MinGroupMembers int
	KeepCount       int
	KeepStrategy    string
	ForecastHorizon int
	HistoryMonths   int
	// SeriesMonths is the forecast input window; longer than HistoryMonths
	// so the seasonal method can see two full cycles.
	SeriesMonths int
}

const (
	defaultMinGroupMembers = 3
	defaultKeepCount       = 1
	defaultHorizon         = 6
	defaultHistoryMonths   = 12
	defaultSeriesMonths    = 24
)

func (c Config) withDefaults() Config {
	if c.MinGroupMembers <= 0 {
		c.MinGroupMembers = defaultMinGroupMembers
	}
	if c.KeepCount <= 0 {
		c.KeepCount = defaultKeepCount
	}
	if c.KeepStrategy == "" {
		c.KeepStrategy = KeepByUnitCost
	}
	if c.ForecastHorizon <= 0 {
		c.ForecastHorizon = defaultHorizon
	}
	if c.HistoryMonths <= 0 {
		c.HistoryMonths = defaultHistoryMonths
	}
	if c.SeriesMonths <= 0 {
		c.SeriesMonths = defaultSeriesMonths
	}
	if c.SeriesMonths < c.HistoryMonths {
		c.SeriesMonths = c.HistoryMonths
	}
	return c
}

// Evaluator runs the full per-group pipeline: aggregation, economics,
// coverage, history reconstruction, forecasting, scoring and synthesis.
type Evaluator struct {
	cfg       Config
	engine    *forecast.Engine
	validator *forecast.Validator
}

func NewEvaluator(cfg Config, engine *forecast.Engine, validator *forecast.Validator) *Evaluator {
	if engine == nil {
		engine = forecast.NewEngine(forecast.Options{})
	}
	if validator == nil {
		validator = forecast.NewValidator()
	}
	return &Evaluator{cfg: cfg.withDefaults(), engine: engine, validator: validator}
}

// FactWindow is the number of trailing months of facts the pipeline needs.
func (e *Evaluator) FactWindow() int {
	return e.cfg.SeriesMonths
}

// Evaluate computes one GroupOptimization per eligible group from the given
// rows and monthly facts. It is deterministic in (rows, facts, now) apart
// from the evaluation timestamp, and returns an empty slice on degenerate
// input.
func (e *Evaluator) Evaluate(rows []domain.ProductRef, facts []domain.MonthlyFact, now time.Time) []domain.GroupOptimization {
	groups := AggregateGroups(rows, e.cfg.MinGroupMembers)
	if len(groups) == 0 {
		return []domain.GroupOptimization{}
	}

	items := make([]domain.GroupOptimization, 0, len(groups))
	for _, g := range groups {
		items = append(items, e.EvaluateGroup(g, facts, now))
	}
	return items
}

// EvaluateGroup runs the pipeline for a single pre-aggregated group.
func (e *Evaluator) EvaluateGroup(group domain.Group, facts []domain.MonthlyFact, now time.Time) domain.GroupOptimization {
	w := ComputeWeights(group.Members)
	sel := SelectReferences(group.Members, w, e.cfg.KeepStrategy, e.cfg.KeepCount)

	var keptQty float64
	for _, k := range sel.Kept {
		keptQty += k.Qty
	}
	coverage := NewCoverageModel(keptQty, w.TotalQty)

	history := ReconstructHistory(group, facts, w, coverage, now, e.cfg.HistoryMonths)
	series := HistorySeries(group, facts, now, e.cfg.SeriesMonths)

	avgQty := 0.0
	if len(history.Months) > 0 {
		avgQty = history.Totals.Qty / float64(len(history.Months))
	}

	projection := e.project(group.Key, series, w, coverage, avgQty, now)

	return domain.GroupOptimization{
		GroupingID:           group.Key.GroupingID,
		Quality:              group.Key.Quality,
		RefsTotal:            len(group.Members),
		MinUnitCost:          w.MinUnitCost,
		WeightedSalePrice:    round2(w.WeightedSalePrice),
		WeightedUnitCost:     round2(w.WeightedUnitCost),
		GrowthRate:           projection.GrowthRate,
		GainPotential:        GainPotential(group.Members, w),
		History:              history,
		Projection:           projection,
		Synthesis:            Synthesize(history, projection),
		RefsToKeep:           sel.Kept,
		RefsToDeleteLowSales: sel.LowSales,
		RefsToDeleteNoSales:  sel.NoSales,
	}
}

// project forecasts the group's series and scores the result. A series with
// no significant sales short-circuits to a forced-zero projection so dead
// groups never report phantom gains.
func (e *Evaluator) project(key domain.GroupKey, series []domain.MonthlyFact, w Weights, coverage CoverageModel, avgQty float64, now time.Time) domain.Projection6M {
	// Months before the group's first sale carry no signal; keeping them
	// would drown a young group's trend in leading zeros.
	start := len(series)
	for i, s := range series {
		if s.Qty > 0 {
			start = i
			break
		}
	}

	points := make([]forecast.Point, 0, len(series)-start)
	for _, s := range series[start:] {
		points = append(points, forecast.Point{Period: s.Period, Qty: s.Qty})
	}

	if len(points) == 0 {
		log.Warn().
			Int64("grouping_id", key.GroupingID).
			Str("quality", key.Quality).
			Msg("empty or all-zero history, forcing zero projection")
		return e.forcedZeroProjection(len(series), now)
	}

	result := e.engine.Forecast(points, e.cfg.ForecastHorizon)
	eval := e.validator.Evaluate(result, points, &forecast.BusinessContext{
		MinPrice:       w.MinUnitCost,
		AvgPrice:       w.WeightedSalePrice,
		QualitySegment: key.Quality,
	})

	log.Debug().
		Int64("grouping_id", key.GroupingID).
		Str("quality", key.Quality).
		Str("method", result.Method).
		Float64("score", eval.QualityScore).
		Msg("projection scored")

	return BuildProjection(result, eval, w, coverage, avgQty, now)
}

// forcedZeroProjection is the well-defined result for groups without any
// sales: all-zero months, method "empty", confidence "none".
func (e *Evaluator) forcedZeroProjection(dataPoints int, now time.Time) domain.Projection6M {
	periods := FuturePeriods(now, e.cfg.ForecastHorizon)
	months := make([]domain.ForecastMonth, 0, len(periods))
	for _, p := range periods {
		months = append(months, domain.ForecastMonth{Period: p, CoverageFactor: coverageFloor})
	}
	return domain.Projection6M{
		Months: months,
		Metadata: domain.ForecastMetadata{
			Method:          forecast.MethodEmpty,
			ModelQuality:    forecast.QualityNone,
			QualityScore:    0,
			ConfidenceLevel: forecast.ConfidenceNone,
			DataPoints:      dataPoints,
			Warnings:        []string{"no significant sales over the trailing period"},
			Recommendations: []string{"review 12-month sales before acting", "consider delisting if the group stays inactive"},
			Summary:         "no significant sales",
			EvaluatedAt:     time.Now(),
		},
	}
}
