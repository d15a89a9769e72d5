package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// LinearStrategy fits an ordinary least squares trend line and extrapolates
// it over the horizon. Confidence bounds come from the residual error of the
// fit.
type LinearStrategy struct{}

func (LinearStrategy) Name() string { return MethodLinear }

func (LinearStrategy) Forecast(series []Point, horizon int) (*Result, error) {
	vals := values(series)
	if len(vals) < 2 {
		return nil, fmt.Errorf("linear regression needs at least 2 points, got %d", len(vals))
	}

	xs := make([]float64, len(vals))
	for i := range xs {
		xs[i] = float64(i)
	}

	intercept, slope := stat.LinearRegression(xs, vals, nil, false)
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		return nil, fmt.Errorf("degenerate fit on %d points", len(vals))
	}

	fitted := make([]float64, len(vals))
	for i, x := range xs {
		fitted[i] = intercept + slope*x
	}
	rsq := rSquared(fitted, vals)

	predictions := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		predictions[i] = math.Max(0, intercept+slope*float64(len(vals)+i))
	}

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

	quality := QualityBasic
	switch {
	case rsq > 0.8:
		quality = QualityExcellent
	case rsq > 0.5:
		quality = QualityGood
	}

	return &Result{
		Method:       MethodLinear,
		Predictions:  predictions,
		LowerBound:   lower,
		UpperBound:   upper,
		Slope:        &slope,
		RSquared:     &rsq,
		ModelQuality: quality,
	}, nil
}

// rSquared wraps stat.RSquaredFrom for flat series, where the total sum of
// squares is zero: a perfect fit on a constant series counts as 1, anything
// else as 0.
func rSquared(fitted, vals []float64) float64 {
	rsq := stat.RSquaredFrom(fitted, vals, nil)
	if math.IsNaN(rsq) {
		if residualStdDev(vals, fitted) == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, rsq)
}

func residualStdDev(vals, fitted []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	residuals := make([]float64, len(vals))
	for i := range vals {
		residuals[i] = vals[i] - fitted[i]
	}
	sd := stat.StdDev(residuals, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}
