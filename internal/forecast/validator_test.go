package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_NoData(t *testing.T) {
	v := NewValidator()

	for _, eval := range []Evaluation{
		v.Evaluate(nil, makeSeries([]float64{1, 2}), nil),
		v.Evaluate(&Result{Method: MethodLinear}, makeSeries([]float64{1, 2}), nil),
		v.Evaluate(&Result{Method: MethodLinear, Predictions: []float64{1}}, nil, nil),
	} {
		assert.Zero(t, eval.QualityScore)
		assert.Equal(t, ConfidenceNone, eval.ConfidenceLevel)
		assert.Equal(t, "no data available for forecasting", eval.Summary)
	}
}

func TestEvaluate_ScoreWithinBounds(t *testing.T) {
	v := NewValidator()
	e := NewEngine(Options{})

	cases := [][]float64{
		{50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50},
		{10, 200, 5, 300, 2, 400},
		{0, 0, 0, 10, 0, 0, 0, 20},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}

	for _, vals := range cases {
		series := makeSeries(vals)
		result := e.Forecast(series, 6)
		eval := v.Evaluate(result, series, nil)

		assert.GreaterOrEqual(t, eval.QualityScore, 0.0)
		assert.LessOrEqual(t, eval.QualityScore, 1.0)
		assert.NotEmpty(t, eval.ConfidenceLevel)
		assert.NotEmpty(t, eval.Recommendations)
	}
}

func TestEvaluate_SinglePointHistory(t *testing.T) {
	v := NewValidator()
	e := NewEngine(Options{})

	series := makeSeries([]float64{10})
	result := e.Forecast(series, 6)
	eval := v.Evaluate(result, series, nil)

	require.False(t, math.IsNaN(eval.QualityScore))
	assert.GreaterOrEqual(t, eval.QualityScore, 0.0)
	assert.LessOrEqual(t, eval.QualityScore, 1.0)
	assert.Equal(t, 1, eval.DataPoints)
}

func TestEvaluate_StableHistoryScoresWell(t *testing.T) {
	v := NewValidator()
	e := NewEngine(Options{})

	series := constantSeries(100, 12)
	result := e.Forecast(series, 6)
	eval := v.Evaluate(result, series, &BusinessContext{MinPrice: 8, AvgPrice: 20})

	assert.GreaterOrEqual(t, eval.QualityScore, 0.6)
	assert.Contains(t, []string{ConfidenceMedium, ConfidenceHigh}, eval.ConfidenceLevel)
	assert.Equal(t, 12, eval.DataPoints)
}

func TestEvaluate_VolatileHistoryWarns(t *testing.T) {
	v := NewValidator()
	e := NewEngine(Options{})

	series := makeSeries([]float64{0, 0, 500, 0, 0, 800, 0, 0})
	result := e.Forecast(series, 6)
	eval := v.Evaluate(result, series, nil)

	assert.NotEmpty(t, eval.Warnings)
}

func TestEvaluate_IncoherentPredictionWarns(t *testing.T) {
	v := NewValidator()

	series := constantSeries(10, 12)
	result := &Result{
		Method:      MethodLinear,
		Predictions: []float64{100, 100, 100, 100, 100, 100},
	}
	eval := v.Evaluate(result, series, nil)

	require.NotEmpty(t, eval.Warnings)
	assert.Less(t, eval.QualityScore, 0.7)

	// the same validator scores a coherent forecast of similar shape higher
	coherent := v.Evaluate(&Result{
		Method:      MethodLinear,
		Predictions: []float64{10, 10, 10, 10, 10, 10},
	}, series, nil)
	assert.Greater(t, coherent.QualityScore, eval.QualityScore)
}

func TestAssessMethodPerformance(t *testing.T) {
	v := NewValidator()
	rsq := func(x float64) *float64 { return &x }

	tests := []struct {
		name   string
		result *Result
		points int
		want   float64
	}{
		{"seasonal with two years", &Result{Method: MethodSeasonal}, 24, 0.9},
		{"seasonal with one year", &Result{Method: MethodSeasonal}, 12, 0.8},
		{"seasonal underfed", &Result{Method: MethodSeasonal}, 8, 0.6},
		{"linear excellent fit", &Result{Method: MethodLinear, RSquared: rsq(0.9)}, 12, 0.9},
		{"linear good fit", &Result{Method: MethodLinear, RSquared: rsq(0.65)}, 12, 0.75},
		{"linear fair fit", &Result{Method: MethodLinear, RSquared: rsq(0.45)}, 12, 0.6},
		{"linear poor fit", &Result{Method: MethodLinear, RSquared: rsq(0.1)}, 12, 0.4},
		{"linear without fit metric", &Result{Method: MethodLinear}, 12, 0.5},
		{"holt scored like linear", &Result{Method: MethodHoltWinters, RSquared: rsq(0.9)}, 12, 0.9},
		{"constant", &Result{Method: MethodConstant}, 12, 0.35},
		{"empty", &Result{Method: MethodEmpty}, 12, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.assessMethodPerformance(tt.result, tt.points))
		})
	}
}

func TestConfidenceLevel(t *testing.T) {
	tests := []struct {
		score  float64
		points int
		want   string
	}{
		{0.9, 24, ConfidenceHigh},
		{0.9, 6, ConfidenceMedium}, // strong score, thin history
		{0.7, 12, ConfidenceMedium},
		{0.7, 3, ConfidenceLow},
		{0.5, 12, ConfidenceLow},
		{0.2, 12, ConfidenceVeryLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, confidenceLevel(tt.score, tt.points), "score=%v points=%d", tt.score, tt.points)
	}
}

func TestConfidenceLevel_MonotoneInScore(t *testing.T) {
	rank := map[string]int{
		ConfidenceVeryLow: 0,
		ConfidenceLow:     1,
		ConfidenceMedium:  2,
		ConfidenceHigh:    3,
	}

	prev := -1
	for score := 0.0; score <= 1.0; score += 0.05 {
		level := confidenceLevel(score, 24)
		assert.GreaterOrEqual(t, rank[level], prev, "score=%v", score)
		prev = rank[level]
	}
}

func TestTemporalGaps(t *testing.T) {
	series := []Point{
		{Period: "2024-01", Qty: 1},
		{Period: "2024-02", Qty: 1},
		{Period: "2024-05", Qty: 1}, // two months missing
		{Period: "2024-06", Qty: 1},
		{Period: "2024-09", Qty: 1}, // again
	}
	assert.Equal(t, 2, temporalGaps(series))

	assert.Zero(t, temporalGaps(makeSeries([]float64{1, 2, 3})))
}

func TestEvaluate_SummaryShape(t *testing.T) {
	v := NewValidator()
	e := NewEngine(Options{})

	series := constantSeries(30, 12)
	result := e.Forecast(series, 6)
	eval := v.Evaluate(result, series, nil)

	assert.Contains(t, eval.Summary, result.Method)
	assert.Contains(t, eval.Summary, "12 months")
	assert.Contains(t, eval.Summary, eval.ConfidenceLevel)
}
