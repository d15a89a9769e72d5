package forecast

import (
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// Options tune method selection and the damping safeguards.
type Options struct {
	// MaxSeriesMonths caps the series length to keep fit cost bounded;
	// longer series keep only the most recent window.
	MaxSeriesMonths int
	// StableCVThreshold is the coefficient-of-variation ceiling under which
	// the seasonal strategy is allowed.
	StableCVThreshold float64
	// TotalDampingRatio bounds the forecast total relative to the trailing
	// historical total.
	TotalDampingRatio float64
	// Seasonal overrides the default seasonal strategy. Nil keeps the
	// built-in decomposition; selection still degrades through the chain
	// when it fails.
	Seasonal Strategy
}

const (
	defaultMaxSeriesMonths   = 24
	defaultStableCV          = 2.0
	defaultTotalDampingRatio = 0.75
	seasonalMinPoints        = 24
	smoothingMinPoints       = 6
	totalDampingMinPoints    = 12

	firstMonthGrowthCap  = 1.5
	firstMonthGrowthFlor = 0.5
	laterMonthGrowthCap  = 1.3
	laterMonthGrowthFlor = 0.7
)

// Engine selects a strategy, runs it with a guaranteed fallback chain, and
// applies the damping safeguards to whatever comes out.
type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	if opts.MaxSeriesMonths <= 0 {
		opts.MaxSeriesMonths = defaultMaxSeriesMonths
	}
	if opts.StableCVThreshold <= 0 {
		opts.StableCVThreshold = defaultStableCV
	}
	if opts.TotalDampingRatio <= 0 {
		opts.TotalDampingRatio = defaultTotalDampingRatio
	}
	if opts.Seasonal == nil {
		opts.Seasonal = SeasonalStrategy{}
	}
	return &Engine{opts: opts}
}

// Forecast predicts horizon future monthly quantities for the given series.
// It never returns nil and never fails: degenerate input yields the empty or
// constant result, and a strategy failure degrades to the next simpler one.
func (e *Engine) Forecast(series []Point, horizon int) *Result {
	if horizon <= 0 {
		horizon = 6
	}
	if len(series) > e.opts.MaxSeriesMonths {
		series = series[len(series)-e.opts.MaxSeriesMonths:]
	}

	vals := values(series)
	if len(vals) == 0 {
		return emptyResult(horizon)
	}
	if len(vals) == 1 {
		return constantResult(vals[0], horizon)
	}

	result := e.runChain(series, horizon)
	e.dampen(result, vals)
	return result
}

// runChain tries strategies from the most capable one the series qualifies
// for down to constant repetition.
func (e *Engine) runChain(series []Point, horizon int) *Result {
	vals := values(series)

	var chain []Strategy
	if len(vals) >= seasonalMinPoints && coefficientOfVariation(vals) < e.opts.StableCVThreshold {
		chain = append(chain, e.opts.Seasonal)
	}
	if len(vals) >= smoothingMinPoints {
		chain = append(chain, HoltStrategy{})
	}
	chain = append(chain, LinearStrategy{})

	for _, s := range chain {
		result, err := s.Forecast(series, horizon)
		if err != nil {
			log.Warn().Err(err).Str("method", s.Name()).Msg("forecast strategy failed, degrading")
			continue
		}
		return result
	}

	// Last resort: repeat the final observed value.
	return constantResult(vals[len(vals)-1], horizon)
}

// dampen applies the growth and total safeguards in place.
func (e *Engine) dampen(r *Result, historical []float64) {
	if len(r.Predictions) == 0 || len(historical) == 0 {
		return
	}

	ref := historical[len(historical)-1]
	if ref <= 0 {
		ref = stat.Mean(historical, nil)
	}
	for i := range r.Predictions {
		lo, hi := ref*laterMonthGrowthFlor, ref*laterMonthGrowthCap
		if i == 0 {
			lo, hi = ref*firstMonthGrowthFlor, ref*firstMonthGrowthCap
		}
		r.Predictions[i] = math.Max(0, clamp(r.Predictions[i], lo, hi))
		ref = r.Predictions[i]
		if ref <= 0 {
			// A zero month would pin every later month at zero; fall back
			// to the historical average as the growth reference.
			ref = stat.Mean(historical, nil)
		}
	}

	// The total ceiling only makes sense against a full trailing year;
	// a shorter basis would crush stable short histories mechanically.
	if len(historical) < totalDampingMinPoints {
		return
	}

	var histTotal, predTotal float64
	for _, v := range historical {
		histTotal += v
	}
	for _, p := range r.Predictions {
		predTotal += p
	}
	limit := histTotal * e.opts.TotalDampingRatio
	if predTotal > limit && predTotal > 0 {
		scale := limit / predTotal
		for i := range r.Predictions {
			r.Predictions[i] *= scale
		}
	}
}

func coefficientOfVariation(vals []float64) float64 {
	// A single observation has no spread; gonum's sample stddev would be NaN.
	if len(vals) < 2 {
		return 0
	}
	mean := stat.Mean(vals, nil)
	return stat.StdDev(vals, nil) / math.Max(mean, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func emptyResult(horizon int) *Result {
	return &Result{
		Method:       MethodEmpty,
		Predictions:  make([]float64, horizon),
		LowerBound:   make([]float64, horizon),
		UpperBound:   make([]float64, horizon),
		ModelQuality: QualityNone,
	}
}

func constantResult(v float64, horizon int) *Result {
	predictions := make([]float64, horizon)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for i := range predictions {
		predictions[i] = v
		lower[i] = v * 0.7
		upper[i] = v * 1.3
	}
	return &Result{
		Method:       MethodConstant,
		Predictions:  predictions,
		LowerBound:   lower,
		UpperBound:   upper,
		ModelQuality: QualityBasic,
	}
}
