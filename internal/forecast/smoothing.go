package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// HoltStrategy is double exponential smoothing with an additive trend and no
// seasonal component. It is the default for series too short or too unstable
// for the seasonal strategy but long enough that a plain trend line would
// overreact to the first and last points.
type HoltStrategy struct {
	// Alpha smooths the level, Beta the trend. Zero values fall back to
	// the defaults below.
	Alpha float64
	Beta  float64
}

const (
	defaultHoltAlpha = 0.4
	defaultHoltBeta  = 0.2
)

func (HoltStrategy) Name() string { return MethodHoltWinters }

func (h HoltStrategy) Forecast(series []Point, horizon int) (*Result, error) {
	vals := values(series)
	if len(vals) < 3 {
		return nil, fmt.Errorf("holt smoothing needs at least 3 points, got %d", len(vals))
	}

	alpha := h.Alpha
	if alpha <= 0 || alpha >= 1 {
		alpha = defaultHoltAlpha
	}
	beta := h.Beta
	if beta <= 0 || beta >= 1 {
		beta = defaultHoltBeta
	}

	level := vals[0]
	trend := vals[1] - vals[0]
	fitted := make([]float64, len(vals))
	fitted[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		fitted[i] = level + trend
		prevLevel := level
		level = alpha*vals[i] + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}

	predictions := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		predictions[i] = math.Max(0, level+float64(i+1)*trend)
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

	quality := QualityBasic
	switch {
	case rsq > 0.8:
		quality = QualityExcellent
	case rsq > 0.5:
		quality = QualityGood
	}

	slope := trend
	return &Result{
		Method:       MethodHoltWinters,
		Predictions:  predictions,
		LowerBound:   lower,
		UpperBound:   upper,
		Slope:        &slope,
		RSquared:     &rsq,
		ModelQuality: quality,
	}, nil
}
