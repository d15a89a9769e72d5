package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// SeasonalStrategy decomposes the series into an OLS trend plus additive
// monthly indices over a 12-month cycle and extrapolates both. It needs two
// full cycles of reasonably stable data to be worth using, which is why the
// engine only selects it for long, low-volatility series.
//
// The strategy is injectable so deployments can swap in an external model
// without touching the fallback chain.
type SeasonalStrategy struct {
	CycleLength int // defaults to 12
}

func (SeasonalStrategy) Name() string { return MethodSeasonal }

func (s SeasonalStrategy) Forecast(series []Point, horizon int) (*Result, error) {
	cycle := s.CycleLength
	if cycle <= 0 {
		cycle = 12
	}

	vals := values(series)
	if len(vals) < 2*cycle {
		return nil, fmt.Errorf("seasonal decomposition needs %d points, got %d", 2*cycle, len(vals))
	}

	xs := make([]float64, len(vals))
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, vals, nil, false)
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		return nil, fmt.Errorf("degenerate trend fit on %d points", len(vals))
	}

	// Additive seasonal index: mean detrended value per position in the cycle.
	sums := make([]float64, cycle)
	counts := make([]int, cycle)
	for i, v := range vals {
		pos := i % cycle
		sums[pos] += v - (intercept + slope*float64(i))
		counts[pos]++
	}
	indices := make([]float64, cycle)
	for i := range indices {
		if counts[i] > 0 {
			indices[i] = sums[i] / float64(counts[i])
		}
	}

	fitted := make([]float64, len(vals))
	for i := range vals {
		fitted[i] = intercept + slope*float64(i) + indices[i%cycle]
	}

	predictions := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		idx := len(vals) + i
		predictions[i] = math.Max(0, intercept+slope*float64(idx)+indices[idx%cycle])
	}

	rsq := rSquared(fitted, vals)
	stdErr := residualStdDev(vals, fitted)
	if stdErr == 0 {
		stdErr = stat.Mean(vals, nil) * 0.2
	}
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for i, p := range predictions {
		lower[i] = math.Max(0, p-1.5*stdErr)
		upper[i] = p + 1.5*stdErr
	}

	return &Result{
		Method:       MethodSeasonal,
		Predictions:  predictions,
		LowerBound:   lower,
		UpperBound:   upper,
		Slope:        &slope,
		RSquared:     &rsq,
		ModelQuality: QualityAdvanced,
	}, nil
}
