package domain

import "time"

// Quality classes after normalization. The raw catalog carries two aftermarket
// sub-classes (PMQ, PMV) that are fused into PM for grouping purposes.
const (
	QualityOEM = "OEM"
	QualityPM  = "PM"
)

// ProductRef is one product reference with its trailing 12-month figures.
// Supplied by the data-access layer, read-only inside the engine.
type ProductRef struct {
	ProductID       int64   `json:"product_id" db:"product_id"`
	Refint          string  `json:"refint" db:"refint"`
	GroupingID      int64   `json:"grouping_id" db:"grouping_id"`
	RawQuality      string  `json:"quality" db:"quality"`
	UnitCost        float64 `json:"unit_cost" db:"unit_cost"`
	TrailingQty     float64 `json:"trailing_qty" db:"trailing_qty"`
	TrailingRevenue float64 `json:"trailing_revenue" db:"trailing_revenue"`
}

// GroupKey identifies a set of substitutable references.
type GroupKey struct {
	GroupingID int64  `json:"grouping_id"`
	Quality    string `json:"quality"`
}

// Group owns the references sharing one grouping key and quality class.
type Group struct {
	Key     GroupKey     `json:"key"`
	Members []ProductRef `json:"members"`
}

// MonthlyFact is one product's aggregated sales for one calendar month.
type MonthlyFact struct {
	ProductID  int64   `json:"product_id" db:"product_id"`
	Period     string  `json:"period" db:"period"` // YYYY-MM
	Qty        float64 `json:"qty" db:"qty"`
	Revenue    float64 `json:"revenue" db:"revenue"`
	MarginCost float64 `json:"margin_cost" db:"margin_cost"`
	MarginPMP  float64 `json:"margin_pmp" db:"margin_pmp"`
}

// HistoryMonth is one reconstructed month of actual vs. optimized margin.
type HistoryMonth struct {
	Period              string  `json:"period"`
	Qty                 float64 `json:"qty"`
	Revenue             float64 `json:"revenue"`
	ActualMarginCost    float64 `json:"actual_margin_cost"`
	OptimizedMarginCost float64 `json:"optimized_margin_cost"`
	GainCost            float64 `json:"gain_cost"`
	ActualMarginPMP     float64 `json:"actual_margin_pmp"`
	OptimizedMarginPMP  float64 `json:"optimized_margin_pmp"`
	GainPMP             float64 `json:"gain_pmp"`
	OptimizedRevenue    float64 `json:"optimized_revenue"`
	CoverageFactor      float64 `json:"coverage_factor"`
}

// HistoryTotals are the column sums over the reconstructed window.
type HistoryTotals struct {
	Qty                 float64 `json:"qty"`
	Revenue             float64 `json:"revenue"`
	ActualMarginCost    float64 `json:"actual_margin_cost"`
	OptimizedMarginCost float64 `json:"optimized_margin_cost"`
	GainCost            float64 `json:"gain_cost"`
	ActualMarginPMP     float64 `json:"actual_margin_pmp"`
	OptimizedMarginPMP  float64 `json:"optimized_margin_pmp"`
	GainPMP             float64 `json:"gain_pmp"`
}

// History12M is the trailing-12-month reconstruction.
type History12M struct {
	Months []HistoryMonth `json:"months"`
	Totals HistoryTotals  `json:"totals"`
}

// ForecastMonth is one projected month with the coverage factor applied.
type ForecastMonth struct {
	Period              string  `json:"period"`
	Qty                 float64 `json:"qty"`
	Revenue             float64 `json:"revenue"`
	ActualMarginCost    float64 `json:"actual_margin_cost"`
	OptimizedMarginCost float64 `json:"optimized_margin_cost"`
	GainCost            float64 `json:"gain_cost"`
	ActualMarginPMP     float64 `json:"actual_margin_pmp"`
	OptimizedMarginPMP  float64 `json:"optimized_margin_pmp"`
	GainPMP             float64 `json:"gain_pmp"`
	CoverageFactor      float64 `json:"coverage_factor"`
}

// ProjectionTotals sum the forecast horizon.
type ProjectionTotals struct {
	Qty                 float64 `json:"qty"`
	Revenue             float64 `json:"revenue"`
	ActualMarginCost    float64 `json:"actual_margin_cost"`
	OptimizedMarginCost float64 `json:"optimized_margin_cost"`
	GainCost            float64 `json:"gain_cost"`
	ActualMarginPMP     float64 `json:"actual_margin_pmp"`
	OptimizedMarginPMP  float64 `json:"optimized_margin_pmp"`
	GainPMP             float64 `json:"gain_pmp"`
}

// ForecastMetadata describes the method, score and advice attached to a
// projection.
type ForecastMetadata struct {
	Method          string    `json:"method"`
	ModelQuality    string    `json:"model_quality"`
	QualityScore    float64   `json:"quality_score"`
	ConfidenceLevel string    `json:"confidence_level"`
	DataPoints      int       `json:"data_points"`
	Slope           *float64  `json:"slope,omitempty"`
	RSquared        *float64  `json:"r_squared,omitempty"`
	LowerBound      []float64 `json:"lower_bound,omitempty"`
	UpperBound      []float64 `json:"upper_bound,omitempty"`
	Warnings        []string  `json:"warnings"`
	Recommendations []string  `json:"recommendations"`
	Summary         string    `json:"summary"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

// Projection6M is the 6-month projection block.
type Projection6M struct {
	GrowthRate float64          `json:"growth_rate"`
	Months     []ForecastMonth  `json:"months"`
	Totals     ProjectionTotals `json:"totals"`
	Metadata   ForecastMetadata `json:"metadata"`
}

// Synthesis merges the 12-month history with the 6-month projection.
type Synthesis struct {
	GainCost12M            float64 `json:"gain_cost_12m"`
	GainPMP12M             float64 `json:"gain_pmp_12m"`
	GainCost6M             float64 `json:"gain_cost_6m"`
	GainPMP6M              float64 `json:"gain_pmp_6m"`
	GainCost18M            float64 `json:"gain_cost_18m"`
	GainPMP18M             float64 `json:"gain_pmp_18m"`
	ActualMarginCost18M    float64 `json:"actual_margin_cost_18m"`
	OptimizedMarginCost18M float64 `json:"optimized_margin_cost_18m"`
	ActualMarginPMP18M     float64 `json:"actual_margin_pmp_18m"`
	OptimizedMarginPMP18M  float64 `json:"optimized_margin_pmp_18m"`
	ImprovementPct         float64 `json:"improvement_pct"`
}

// OptimizationRef is a reference in one of the three selection buckets.
type OptimizationRef struct {
	ProductID int64   `json:"product_id"`
	Refint    string  `json:"refint"`
	UnitCost  float64 `json:"unit_cost"`
	Revenue   float64 `json:"revenue"`
	Qty       float64 `json:"qty"`
	Gain      float64 `json:"gain"`
}

// GroupOptimization is the full evaluation result for one group.
type GroupOptimization struct {
	GroupingID           int64             `json:"grouping_id"`
	Quality              string            `json:"quality"`
	RefsTotal            int               `json:"refs_total"`
	MinUnitCost          float64           `json:"min_unit_cost"`
	WeightedSalePrice    float64           `json:"weighted_sale_price"`
	WeightedUnitCost     float64           `json:"weighted_unit_cost"`
	GrowthRate           float64           `json:"growth_rate"`
	GainPotential        float64           `json:"gain_potential"`
	History              History12M        `json:"history_12m"`
	Projection           Projection6M      `json:"projection_6m"`
	Synthesis            Synthesis         `json:"synthesis_18m"`
	RefsToKeep           []OptimizationRef `json:"refs_to_keep"`
	RefsToDeleteLowSales []OptimizationRef `json:"refs_to_delete_low_sales"`
	RefsToDeleteNoSales  []OptimizationRef `json:"refs_to_delete_no_sales"`
}

// OptimizationRequest selects the catalog slice to evaluate. ProductIDs, when
// set, bypasses identifier resolution.
type OptimizationRequest struct {
	GroupingID *int64  `json:"grouping_id,omitempty"`
	Quality    string  `json:"quality,omitempty"`
	Refint     string  `json:"refint,omitempty"`
	ProductIDs []int64 `json:"product_ids,omitempty"`
}

// IsEmpty reports whether the request selects nothing.
func (r *OptimizationRequest) IsEmpty() bool {
	return r == nil || (r.GroupingID == nil && r.Quality == "" && r.Refint == "" && len(r.ProductIDs) == 0)
}

// OptimizationResponse is the per-request output envelope.
type OptimizationResponse struct {
	Items []GroupOptimization `json:"items"`
}

// MonitoringRow is one persisted analytics row per group.
type MonitoringRow struct {
	GroupingID     int64     `json:"grouping_id" db:"grouping_id"`
	ProductID      *int64    `json:"product_id" db:"product_id"` // principal kept reference
	RefCount       int       `json:"ref_count" db:"ref_count"`
	Quality        string    `json:"quality" db:"quality"`
	Revenue12M     float64   `json:"revenue_12m" db:"revenue_12m"`
	Margin12M      float64   `json:"margin_12m" db:"margin_12m"`
	Saving12M      float64   `json:"saving_12m" db:"saving_12m"`
	RevenueProj6M  float64   `json:"revenue_proj_6m" db:"revenue_proj_6m"`
	MarginProj6M   float64   `json:"margin_proj_6m" db:"margin_proj_6m"`
	Gain18M        float64   `json:"gain_18m" db:"gain_18m"`
	ImprovementPct float64   `json:"improvement_pct" db:"improvement_pct"`
	GeneratedAt    time.Time `json:"generated_at" db:"generated_at"`
}

// BatchReport summarizes one full batch run.
type BatchReport struct {
	GroupsTotal     int            `json:"groups_total"`
	Inserted        int            `json:"inserted"`
	Skipped         int            `json:"skipped"`
	Failed          int            `json:"failed"`
	MethodCounts    map[string]int `json:"method_counts"`
	AvgQualityScore float64        `json:"avg_quality_score"`
	WarningCount    int            `json:"warning_count"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     time.Time      `json:"completed_at"`
}
