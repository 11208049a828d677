package experiment

import "expcalc/domain/core"

// ============================================================================
// CALCULATION RESULTS (immutable once returned)
// ============================================================================

// Interval is a two-sided confidence interval.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Excludes reports whether v lies strictly outside the interval.
func (i Interval) Excludes(v float64) bool {
	return v < i.Low || v > i.High
}

// Width returns High - Low.
func (i Interval) Width() float64 {
	return i.High - i.Low
}

// SampleSizeResult is the output of the sample size solver.
type SampleSizeResult struct {
	SampleSizePerGroup        []GroupSampleSize `json:"sample_size_per_group"`
	TotalSampleSize           int               `json:"total_sample_size"`
	LimitingComparison        Comparison        `json:"limiting_comparison"`
	TargetValue               float64           `json:"target_value"`
	StandardizedEffect        float64           `json:"standardized_effect"` // Cohen's h (binary) or d (continuous)
	AdjustedSignificanceLevel float64           `json:"adjusted_significance_level"`
	AchievedPower             float64           `json:"achieved_power"` // power of the limiting comparison at the rounded sizes

	CalculationID core.CalculationID `json:"calculation_id,omitempty"` // set when the ledger is enabled
}

// GroupSampleSize is the required size of one arm.
type GroupSampleSize struct {
	Group      string  `json:"group"`
	Allocation float64 `json:"allocation"`
	SampleSize int     `json:"sample_size"`
}

// SampleSizes returns the per-arm sizes in group order.
func (r SampleSizeResult) SampleSizes() []int {
	sizes := make([]int, len(r.SampleSizePerGroup))
	for i, g := range r.SampleSizePerGroup {
		sizes[i] = g.SampleSize
	}
	return sizes
}

// MDEResult is the output of the minimum detectable effect solver.
type MDEResult struct {
	MinimumDetectableEffect   float64    `json:"minimum_detectable_effect"` // in the requested effect unit
	AbsoluteDifference        float64    `json:"absolute_difference"`
	TargetValue               float64    `json:"target_value"`
	StandardizedEffect        float64    `json:"standardized_effect"`
	EffectType                EffectType `json:"effect_type"`
	LimitingComparison        Comparison `json:"limiting_comparison"`
	AdjustedSignificanceLevel float64    `json:"adjusted_significance_level"`
	Iterations                int        `json:"iterations"`

	CalculationID core.CalculationID `json:"calculation_id,omitempty"` // set when the ledger is enabled
}

// CurvePoint is one point of a power curve. Exactly one of TotalSampleSize or
// MinimumDetectableEffect is populated depending on the curve mode.
type CurvePoint struct {
	PowerLevel              float64 `json:"power_level"`
	TotalSampleSize         int     `json:"total_sample_size,omitempty"`
	MinimumDetectableEffect float64 `json:"minimum_detectable_effect,omitempty"`
}

// GroupEstimate is the point estimate and interval of a single arm.
type GroupEstimate struct {
	Group              string   `json:"group"`
	SampleSize         int      `json:"sample_size"`
	Estimate           float64  `json:"estimate"`
	StandardError      float64  `json:"standard_error"`
	ConfidenceInterval Interval `json:"confidence_interval"`
}

// ComparisonResult is the effect estimate and decision for one comparison.
type ComparisonResult struct {
	Comparison                Comparison `json:"comparison"`
	Name                      string     `json:"name"` // "treatment vs baseline"
	BaselineGroup             string     `json:"baseline_group"`
	TreatmentGroup            string     `json:"treatment_group"`
	BaselineEstimate          float64    `json:"baseline_estimate"`
	TreatmentEstimate         float64    `json:"treatment_estimate"`
	EffectType                EffectType `json:"effect_type"`
	Effect                    float64    `json:"effect"`
	StandardError             float64    `json:"standard_error"`
	ConfidenceInterval        Interval   `json:"confidence_interval"`
	TestStatistic             float64    `json:"test_statistic"`
	DegreesOfFreedom          float64    `json:"degrees_of_freedom,omitempty"` // Welch df, continuous only
	PValue                    float64    `json:"p_value"`
	AdjustedSignificanceLevel float64    `json:"adjusted_significance_level"`
	IsSignificant             bool       `json:"is_significant"`
}

// SignificanceReport bundles the per-arm and per-comparison results of one
// significance analysis.
type SignificanceReport struct {
	Outcome                   OutcomeType        `json:"outcome"`
	EffectType                EffectType         `json:"effect_type"`
	NominalSignificanceLevel  float64            `json:"nominal_significance_level"`
	AdjustedSignificanceLevel float64            `json:"adjusted_significance_level"`
	Groups                    []GroupEstimate    `json:"groups"`
	Comparisons               []ComparisonResult `json:"comparisons"`

	CalculationID core.CalculationID `json:"calculation_id,omitempty"` // set when the ledger is enabled
}

// SRMResult is the output of the sample ratio mismatch test.
type SRMResult struct {
	ChiSquareStatistic float64   `json:"chi_square_statistic"`
	DegreesOfFreedom   int       `json:"degrees_of_freedom"`
	PValue             float64   `json:"p_value"`
	ExpectedCounts     []float64 `json:"expected_counts"`
	Threshold          float64   `json:"threshold"`
	IsMismatched       bool      `json:"is_mismatched"`

	CalculationID core.CalculationID `json:"calculation_id,omitempty"` // set when the ledger is enabled
}
