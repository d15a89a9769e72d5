package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Confidence levels, ordered weakest to strongest.
const (
	ConfidenceNone    = "none"
	ConfidenceVeryLow = "very_low"
	ConfidenceLow     = "low"
	ConfidenceMedium  = "medium"
	ConfidenceHigh    = "high"
)

// BusinessContext carries optional domain hints that add a coherence
// sub-score when present.
type BusinessContext struct {
	MinPrice       float64
	AvgPrice       float64
	QualitySegment string
}

// Evaluation scores a forecast against its historical series.
type Evaluation struct {
	QualityScore    float64   `json:"quality_score"`
	ConfidenceLevel string    `json:"confidence_level"`
	MethodUsed      string    `json:"method_used"`
	DataPoints      int       `json:"data_points"`
	Warnings        []string  `json:"warnings"`
	Recommendations []string  `json:"recommendations"`
	Summary         string    `json:"summary"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

// Validator computes a multi-criteria quality score for a forecast result.
// Every sub-score lives in [0,1]; the overall score is the mean of the
// sub-scores that could be computed from the available inputs.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// Evaluate scores result against series. ctx may be nil.
func (v *Validator) Evaluate(result *Result, series []Point, ctx *BusinessContext) Evaluation {
	now := time.Now()
	if result == nil || len(result.Predictions) == 0 || len(series) == 0 {
		return Evaluation{
			QualityScore:    0,
			ConfidenceLevel: ConfidenceNone,
			MethodUsed:      methodOrNone(result),
			Warnings:        []string{"insufficient data for evaluation"},
			Recommendations: []string{"collect historical sales data before forecasting"},
			Summary:         "no data available for forecasting",
			EvaluatedAt:     now,
		}
	}

	hist := values(series)
	var scores []float64
	var warnings []string

	dataScore, dataWarnings, volatility := v.assessDataQuality(series, hist)
	scores = append(scores, dataScore)
	warnings = append(warnings, dataWarnings...)

	coherenceScore, coherenceWarnings := v.assessCoherence(result.Predictions, hist)
	scores = append(scores, coherenceScore)
	warnings = append(warnings, coherenceWarnings...)

	scores = append(scores, v.assessMethodPerformance(result, len(hist)))

	stabilityScore, stabilityWarnings := v.assessStability(result.Predictions, hist)
	scores = append(scores, stabilityScore)
	warnings = append(warnings, stabilityWarnings...)

	if ctx != nil {
		scores = append(scores, 0.8)
	}

	overall := stat.Mean(scores, nil)
	confidence := confidenceLevel(overall, len(hist))
	recommendations := v.recommend(result.Method, overall, len(hist), volatility)

	return Evaluation{
		QualityScore:    round3(overall),
		ConfidenceLevel: confidence,
		MethodUsed:      result.Method,
		DataPoints:      len(hist),
		Warnings:        warnings,
		Recommendations: recommendations,
		Summary: fmt.Sprintf("%s • %d months • score %d%% • confidence %s",
			result.Method, len(hist), int(overall*100), confidence),
		EvaluatedAt: now,
	}
}

// assessDataQuality penalizes short, volatile, sparse or gapped series.
func (v *Validator) assessDataQuality(series []Point, hist []float64) (float64, []string, float64) {
	var warnings []string
	score := 1.0

	switch n := len(hist); {
	case n < 6:
		score -= 0.3
		warnings = append(warnings, fmt.Sprintf("short history (%d months)", n))
	case n < 12:
		score -= 0.1
		warnings = append(warnings, "limited history (under 12 months)")
	}

	cv := coefficientOfVariation(hist)
	switch {
	case cv > 2.0:
		score -= 0.2
		warnings = append(warnings, fmt.Sprintf("highly volatile history (CV=%.1f)", cv))
	case cv > 1.0:
		score -= 0.1
		warnings = append(warnings, "volatile history")
	}

	zeros := 0
	for _, q := range hist {
		if q == 0 {
			zeros++
		}
	}
	zeroRatio := float64(zeros) / float64(len(hist))
	if zeroRatio > 0.3 {
		score -= 0.2
		warnings = append(warnings, fmt.Sprintf("%.0f%% of months without sales", zeroRatio*100))
	}

	gaps := temporalGaps(series)
	if gaps > 0 {
		score -= 0.1 * float64(gaps)
		warnings = append(warnings, fmt.Sprintf("%d temporal gap(s) in history", gaps))
	}

	return math.Max(0.1, score), warnings, cv
}

// assessCoherence flags predictions out of line with the historical scale.
func (v *Validator) assessCoherence(predictions, hist []float64) (float64, []string) {
	var warnings []string
	score := 1.0

	histMean := stat.Mean(hist, nil)
	for i, p := range predictions {
		if histMean <= 0 {
			break
		}
		ratio := p / histMean
		if ratio > 3 {
			warnings = append(warnings, fmt.Sprintf("month %d: prediction %.1fx the historical mean", i+1, ratio))
			score -= 0.15
		} else if ratio < 0.2 {
			warnings = append(warnings, fmt.Sprintf("month %d: prediction at %.0f%% of the historical mean", i+1, ratio*100))
			score -= 0.1
		}
	}

	predMean := stat.Mean(predictions, nil)
	score *= 1 / (1 + math.Abs(predMean-histMean)/math.Max(histMean, 1))

	for i := 1; i < len(predictions); i++ {
		growth := (predictions[i] - predictions[i-1]) / math.Max(predictions[i-1], 1)
		if math.Abs(growth) > 0.5 {
			warnings = append(warnings, fmt.Sprintf("month %d: aberrant month-over-month swing (%.0f%%)", i+1, growth*100))
			score -= 0.1
		}
	}

	return math.Max(0.1, score), warnings
}

// assessMethodPerformance gives each method class a base score, refined by
// R-squared for the regression-class methods and by data volume for the
// seasonal one.
func (v *Validator) assessMethodPerformance(result *Result, dataPoints int) float64 {
	switch result.Method {
	case MethodSeasonal:
		switch {
		case dataPoints >= 24:
			return 0.9
		case dataPoints >= 12:
			return 0.8
		default:
			return 0.6
		}
	case MethodLinear, MethodHoltWinters:
		if result.RSquared == nil {
			return 0.5
		}
		switch rsq := *result.RSquared; {
		case rsq >= 0.8:
			return 0.9
		case rsq >= 0.6:
			return 0.75
		case rsq >= 0.4:
			return 0.6
		default:
			return 0.4
		}
	case MethodConstant:
		return 0.35
	case MethodEmpty:
		return 0.0
	default:
		return 0.5
	}
}

// assessStability compares forecast-internal volatility with historical
// volatility.
func (v *Validator) assessStability(predictions, hist []float64) (float64, []string) {
	if len(predictions) < 2 {
		return 0.5, nil
	}

	var warnings []string
	predCV := coefficientOfVariation(predictions)
	histCV := coefficientOfVariation(hist)

	if predCV > histCV*2 && predCV > 0.1 {
		warnings = append(warnings, "forecast more volatile than history")
	}

	score := 1 / (1 + math.Abs(predCV-histCV))
	return math.Max(0.1, score), warnings
}

func (v *Validator) recommend(method string, score float64, dataPoints int, volatility float64) []string {
	var recs []string
	if score < 0.6 {
		recs = append(recs, "low-reliability forecast, monitor closely")
	}
	if dataPoints < 12 {
		recs = append(recs, "collect at least 12 months of history for better precision")
	}
	if (method == MethodLinear || method == MethodHoltWinters) && dataPoints >= 24 {
		recs = append(recs, "with 2+ years of data the seasonal method may be more precise")
	}
	if volatility > 1.5 {
		recs = append(recs, "volatile history, consider smoothing or seasonal analysis")
	}
	if score >= 0.8 {
		recs = append(recs, "reliable forecast, track monthly actuals against it")
	}
	if len(recs) == 0 {
		recs = append(recs, "coherent forecast, compare against realized sales")
	}
	return recs
}

func confidenceLevel(score float64, dataPoints int) string {
	switch {
	case score >= 0.8 && dataPoints >= 12:
		return ConfidenceHigh
	case score >= 0.6 && dataPoints >= 6:
		return ConfidenceMedium
	case score >= 0.4:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// temporalGaps counts missing calendar months between consecutive points.
func temporalGaps(series []Point) int {
	gaps := 0
	var prev time.Time
	for i, p := range series {
		t, err := time.Parse("2006-01", p.Period)
		if err != nil {
			continue
		}
		if i > 0 && !prev.IsZero() {
			if months := monthsBetween(prev, t); months > 1 {
				gaps++
			}
		}
		prev = t
	}
	return gaps
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func methodOrNone(r *Result) string {
	if r == nil {
		return MethodEmpty
	}
	return r.Method
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
