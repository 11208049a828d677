package experiment

import (
	"encoding/json"
	"fmt"
	"math"
)

// ============================================================================
// CLOSED VARIANTS
// ============================================================================

// OutcomeType selects the variance formula and summary shape of a metric.
type OutcomeType string

const (
	OutcomeBinary     OutcomeType = "binary"     // successes out of trials
	OutcomeContinuous OutcomeType = "continuous" // mean and standard deviation
)

// EffectType selects how an effect maps a baseline onto a target.
type EffectType string

const (
	EffectAbsolute EffectType = "absolute" // target = baseline + delta
	EffectRelative EffectType = "relative" // target = baseline * (1 + delta)
)

// ComparisonType selects which group pairs are compared.
type ComparisonType string

const (
	CompareAllVsControl ComparisonType = "all_vs_control"
	CompareAllPairwise  ComparisonType = "all_pairwise"
)

// ParseOutcomeType maps a caller-supplied name onto an OutcomeType.
func ParseOutcomeType(s string) (OutcomeType, error) {
	switch OutcomeType(s) {
	case OutcomeBinary, OutcomeContinuous:
		return OutcomeType(s), nil
	case "normal":
		return OutcomeContinuous, nil
	}
	return "", fmt.Errorf("unknown outcome type %q", s)
}

// UnmarshalJSON accepts the same names as ParseOutcomeType.
func (o *OutcomeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*o = ""
		return nil
	}
	parsed, err := ParseOutcomeType(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseEffectType maps a caller-supplied name onto an EffectType.
func ParseEffectType(s string) (EffectType, error) {
	switch EffectType(s) {
	case EffectAbsolute, EffectRelative:
		return EffectType(s), nil
	}
	return "", fmt.Errorf("unknown effect type %q", s)
}

// ParseComparisonType maps a caller-supplied name onto a ComparisonType.
func ParseComparisonType(s string) (ComparisonType, error) {
	switch ComparisonType(s) {
	case CompareAllVsControl, CompareAllPairwise:
		return ComparisonType(s), nil
	case "":
		return CompareAllVsControl, nil
	}
	return "", fmt.Errorf("unknown comparison type %q", s)
}

// ============================================================================
// OBSERVED DATA
// ============================================================================

// GroupSummary is one experimental arm. Binary arms use SuccessCount,
// continuous arms use Mean and StdDev.
type GroupSummary struct {
	Name         string  `json:"name"`
	SampleSize   int     `json:"sample_size"`
	SuccessCount int     `json:"success_count,omitempty"` // binary only
	Mean         float64 `json:"mean,omitempty"`          // continuous only
	StdDev       float64 `json:"std_dev,omitempty"`       // continuous only
}

// Estimate returns the point estimate of the arm: the observed proportion for
// binary outcomes, the mean for continuous ones.
func (g GroupSummary) Estimate(outcome OutcomeType) float64 {
	switch outcome {
	case OutcomeBinary:
		return float64(g.SuccessCount) / float64(g.SampleSize)
	case OutcomeContinuous:
		return g.Mean
	}
	return math.NaN()
}

// StandardError returns the standard error of the arm's point estimate.
func (g GroupSummary) StandardError(outcome OutcomeType) float64 {
	n := float64(g.SampleSize)
	switch outcome {
	case OutcomeBinary:
		p := g.Estimate(outcome)
		return math.Sqrt(p * (1 - p) / n)
	case OutcomeContinuous:
		return g.StdDev / math.Sqrt(n)
	}
	return math.NaN()
}

// ExperimentSummary is the ordered set of arms. Groups[0] is the baseline.
type ExperimentSummary struct {
	Outcome OutcomeType    `json:"outcome"`
	Groups  []GroupSummary `json:"groups"`
}

// Baseline returns the control arm.
func (e ExperimentSummary) Baseline() GroupSummary {
	return e.Groups[0]
}

// GroupName returns the arm's name, falling back to its position.
func (e ExperimentSummary) GroupName(i int) string {
	if e.Groups[i].Name != "" {
		return e.Groups[i].Name
	}
	return DefaultGroupName(i)
}

// DefaultGroupName names unnamed arms "control", "variant_1", "variant_2", ...
func DefaultGroupName(i int) string {
	if i == 0 {
		return "control"
	}
	return fmt.Sprintf("variant_%d", i)
}

// ============================================================================
// DESIGN PARAMETERS
// ============================================================================

// Baseline describes the pre-experiment metric used for planning.
// StdDev is only read for continuous outcomes.
type Baseline struct {
	Value  float64 `json:"value"`
	StdDev float64 `json:"std_dev,omitempty"`
}

// TestConfig holds the design parameters shared by the calculators.
type TestConfig struct {
	SignificanceLevel       float64        `json:"significance_level"`
	PowerLevel              float64        `json:"power_level"`
	EffectType              EffectType     `json:"effect_type"`
	MinimumDetectableEffect float64        `json:"minimum_detectable_effect,omitempty"`
	AllocationRatios        []float64      `json:"allocation_ratios"`
	ComparisonType          ComparisonType `json:"comparison_type"`
}

// Groups returns the number of arms implied by the allocation.
func (c TestConfig) Groups() int {
	return len(c.AllocationRatios)
}

// EqualAllocation splits traffic evenly across n arms.
func EqualAllocation(n int) []float64 {
	ratios := make([]float64, n)
	for i := range ratios {
		ratios[i] = 1 / float64(n)
	}
	return ratios
}

// MultipleComparisons enables a Bonferroni correction. A zero
// NumberOfComparisons derives the count from the comparison type.
type MultipleComparisons struct {
	NumberOfComparisons int `json:"number_of_comparisons,omitempty"`
}

// SequentialTesting enables O'Brien-Fleming alpha spending at an interim look.
type SequentialTesting struct {
	InformationFraction float64 `json:"information_fraction"`
}

// CorrectionConfig lists the optional significance corrections.
type CorrectionConfig struct {
	MultipleComparisons *MultipleComparisons `json:"multiple_comparisons,omitempty"`
	SequentialTesting   *SequentialTesting   `json:"sequential_testing,omitempty"`
}
