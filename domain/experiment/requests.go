package experiment

import "fmt"

// PowerRequest is the input shared by the planning calculators.
type PowerRequest struct {
	Outcome     OutcomeType      `json:"outcome"`
	Baseline    Baseline         `json:"baseline"`
	Config      TestConfig       `json:"config"`
	Corrections CorrectionConfig `json:"corrections"`
}

// MDERequest solves for the minimum detectable effect at fixed arm sizes.
type MDERequest struct {
	PowerRequest
	SampleSizes []int `json:"sample_sizes"`
}

// CurveMode selects what a power curve plots against power.
type CurveMode string

const (
	CurveSampleSize CurveMode = "sample_size"
	CurveMDE        CurveMode = "mde"
)

// ParseCurveMode parses a curve mode, defaulting to sample size.
func ParseCurveMode(s string) (CurveMode, error) {
	switch CurveMode(s) {
	case CurveSampleSize, CurveMDE:
		return CurveMode(s), nil
	case "":
		return CurveSampleSize, nil
	}
	return "", fmt.Errorf("unknown curve mode %q", s)
}

// CurveRequest evaluates the sample size or the MDE over a range of power
// levels. SampleSizes is required in MDE mode.
type CurveRequest struct {
	PowerRequest
	Mode        CurveMode `json:"mode"`
	PowerLevels []float64 `json:"power_levels,omitempty"`
	SampleSizes []int     `json:"sample_sizes,omitempty"`
}

// DefaultPowerLevels returns 0.10, 0.11, ..., 0.99.
func DefaultPowerLevels() []float64 {
	levels := make([]float64, 0, 90)
	for i := 10; i <= 99; i++ {
		levels = append(levels, float64(i)/100)
	}
	return levels
}

// SignificanceRequest analyses observed arm summaries.
type SignificanceRequest struct {
	Experiment        ExperimentSummary `json:"experiment"`
	SignificanceLevel float64           `json:"significance_level"`
	EffectType        EffectType        `json:"effect_type"`
	ComparisonType    ComparisonType    `json:"comparison_type"`
	Corrections       CorrectionConfig  `json:"corrections"`
}

// SRMRequest checks observed arm sizes against the planned split. Empty
// ExpectedProportions means an equal split; a zero Threshold means
// DefaultSRMThreshold.
type SRMRequest struct {
	ObservedCounts      []int     `json:"observed_counts"`
	ExpectedProportions []float64 `json:"expected_proportions,omitempty"`
	Threshold           float64   `json:"threshold,omitempty"`
}
