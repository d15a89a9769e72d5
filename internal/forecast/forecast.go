// Package forecast produces monthly quantity forecasts for product groups.
//
// Several strategies are available behind a single entry point; the engine
// auto-selects one from data volume and stability, and every strategy's raw
// output goes through the same growth and total damping safeguards before it
// is returned. A failing strategy degrades to the next simpler one in the
// chain seasonal -> holt_winters -> linear_regression -> constant.
package forecast

// Point is one month of an ordered quantity series.
type Point struct {
	Period string  `json:"period"` // YYYY-MM
	Qty    float64 `json:"qty"`
}

// Method names as recorded in results. The validator keys its base scores on
// these, so strategies must report them verbatim.
const (
	MethodSeasonal    = "seasonal"
	MethodHoltWinters = "holt_winters"
	MethodLinear      = "linear_regression"
	MethodConstant    = "constant"
	MethodEmpty       = "empty"
)

// Quality labels attached to a Result.
const (
	QualityAdvanced  = "advanced"
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityBasic     = "basic"
	QualityNone      = "none"
)

// Result is the uniform record every strategy returns.
type Result struct {
	Method       string    `json:"method"`
	Predictions  []float64 `json:"predictions"`
	LowerBound   []float64 `json:"lower_bound,omitempty"`
	UpperBound   []float64 `json:"upper_bound,omitempty"`
	Slope        *float64  `json:"slope,omitempty"`
	RSquared     *float64  `json:"r_squared,omitempty"`
	ModelQuality string    `json:"model_quality"`
}

// Strategy fits a series and predicts horizon future months.
type Strategy interface {
	Name() string
	Forecast(series []Point, horizon int) (*Result, error)
}

func values(series []Point) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		if p.Qty > 0 {
			out[i] = p.Qty
		}
	}
	return out
}
