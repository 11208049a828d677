package experiment

import (
	"fmt"
	"math"

	"expcalc/domain/core"
)

// AllocationTolerance is how far allocation ratios and expected proportions
// may drift from summing to exactly 1.
const AllocationTolerance = 1e-6

// MinArmSize is the smallest arm for which a two-sample variance estimate
// exists.
const MinArmSize = 2

// DefaultSRMThreshold is the p-value below which a sample ratio mismatch is flagged.
const DefaultSRMThreshold = 0.001

// ValidateTestConfig checks the design parameters. requireEffect is set by the
// sample size solver, which needs a non-zero minimum detectable effect.
func ValidateTestConfig(cfg TestConfig, requireEffect bool) error {
	if err := validateProbability("significance_level", cfg.SignificanceLevel); err != nil {
		return err
	}
	if err := validateProbability("power_level", cfg.PowerLevel); err != nil {
		return err
	}
	if _, err := ParseEffectType(string(cfg.EffectType)); err != nil {
		return core.NewValidationError("effect_type", err.Error())
	}
	if _, err := ParseComparisonType(string(cfg.ComparisonType)); err != nil {
		return core.NewValidationError("comparison_type", err.Error())
	}
	if requireEffect {
		if cfg.MinimumDetectableEffect == 0 || !isFinite(cfg.MinimumDetectableEffect) {
			return core.NewValidationError("minimum_detectable_effect", "must be a non-zero finite number")
		}
	}
	return ValidateAllocation(cfg.AllocationRatios)
}

// ValidateAllocation checks that there are at least two positive ratios
// summing to 1.
func ValidateAllocation(ratios []float64) error {
	if len(ratios) < 2 {
		return core.NewValidationError("allocation_ratios", fmt.Sprintf("need at least 2 groups, got %d", len(ratios)))
	}
	sum := 0.0
	for i, r := range ratios {
		if !(r > 0) || !isFinite(r) {
			return core.NewValidationError("allocation_ratios", fmt.Sprintf("ratio %d must be positive, got %g", i, r))
		}
		sum += r
	}
	if math.Abs(sum-1) > AllocationTolerance {
		return core.NewValidationError("allocation_ratios", fmt.Sprintf("must sum to 1, got %g", sum))
	}
	return nil
}

// ValidateBaseline checks the planning baseline. Proportions of exactly 0 or
// 1 and a zero standard deviation pass here; the solver rejects them as
// degenerate.
func ValidateBaseline(outcome OutcomeType, b Baseline) error {
	switch outcome {
	case OutcomeBinary:
		if b.Value < 0 || b.Value > 1 || math.IsNaN(b.Value) {
			return core.NewValidationError("baseline.value", fmt.Sprintf("proportion must be in [0,1], got %g", b.Value))
		}
	case OutcomeContinuous:
		if !isFinite(b.Value) {
			return core.NewValidationError("baseline.value", "must be finite")
		}
		if b.StdDev < 0 || !isFinite(b.StdDev) {
			return core.NewValidationError("baseline.std_dev", fmt.Sprintf("must be non-negative, got %g", b.StdDev))
		}
	default:
		return core.NewValidationError("outcome", fmt.Sprintf("unknown outcome type %q", outcome))
	}
	return nil
}

// ValidateCorrections checks the optional correction settings. The
// information fraction range is enforced by the sequential corrector.
func ValidateCorrections(c CorrectionConfig) error {
	if c.MultipleComparisons != nil && c.MultipleComparisons.NumberOfComparisons < 0 {
		return core.NewValidationError("multiple_comparisons.number_of_comparisons", "must not be negative")
	}
	return nil
}

// ValidateSampleSizes checks fixed per-arm sizes against the allocation.
func ValidateSampleSizes(sizes []int, groups int) error {
	if len(sizes) != groups {
		return core.NewValidationError("sample_sizes", fmt.Sprintf("expected %d values, got %d", groups, len(sizes)))
	}
	for i, n := range sizes {
		if n < MinArmSize {
			return core.NewValidationError("sample_sizes", fmt.Sprintf("size %d must be at least %d, got %d", i, MinArmSize, n))
		}
	}
	return nil
}

// ValidateExperiment checks observed arm summaries.
func ValidateExperiment(e ExperimentSummary) error {
	if len(e.Groups) < 2 {
		return core.NewValidationError("groups", fmt.Sprintf("need at least 2 groups, got %d", len(e.Groups)))
	}

	for i, g := range e.Groups {
		field := fmt.Sprintf("groups[%d]", i)
		if g.SampleSize <= 0 {
			return core.NewValidationError(field+".sample_size", fmt.Sprintf("must be positive, got %d", g.SampleSize))
		}

		switch e.Outcome {
		case OutcomeBinary:
			if g.SuccessCount < 0 || g.SuccessCount > g.SampleSize {
				return core.NewValidationError(field+".success_count",
					fmt.Sprintf("must be in [0, %d], got %d", g.SampleSize, g.SuccessCount))
			}
		case OutcomeContinuous:
			if !isFinite(g.Mean) {
				return core.NewValidationError(field+".mean", "must be finite")
			}
			if g.StdDev < 0 || !isFinite(g.StdDev) {
				return core.NewValidationError(field+".std_dev", fmt.Sprintf("must be non-negative, got %g", g.StdDev))
			}
		default:
			return core.NewValidationError("outcome", fmt.Sprintf("unknown outcome type %q", e.Outcome))
		}
	}
	return nil
}

// ValidateSignificance checks a significance request before any interval is
// computed.
func ValidateSignificance(req SignificanceRequest) error {
	if err := ValidateExperiment(req.Experiment); err != nil {
		return err
	}
	if err := validateProbability("significance_level", req.SignificanceLevel); err != nil {
		return err
	}
	if _, err := ParseEffectType(string(req.EffectType)); err != nil {
		return core.NewValidationError("effect_type", err.Error())
	}
	if _, err := ParseComparisonType(string(req.ComparisonType)); err != nil {
		return core.NewValidationError("comparison_type", err.Error())
	}
	return ValidateCorrections(req.Corrections)
}

// ValidateSRM checks the inputs of the sample ratio mismatch test.
func ValidateSRM(observed []int, expected []float64, threshold float64) error {
	if len(observed) < 2 {
		return core.NewValidationError("observed_counts", fmt.Sprintf("need at least 2 groups, got %d", len(observed)))
	}
	if len(expected) != len(observed) {
		return core.NewValidationError("expected_proportions",
			fmt.Sprintf("expected %d values, got %d", len(observed), len(expected)))
	}
	for i, o := range observed {
		if o < 0 {
			return core.NewValidationError("observed_counts", fmt.Sprintf("count %d must be non-negative, got %d", i, o))
		}
	}
	sum := 0.0
	for i, p := range expected {
		if p < 0 || !isFinite(p) {
			return core.NewValidationError("expected_proportions", fmt.Sprintf("proportion %d must be non-negative, got %g", i, p))
		}
		sum += p
	}
	if math.Abs(sum-1) > AllocationTolerance {
		return core.NewValidationError("expected_proportions", fmt.Sprintf("must sum to 1, got %g", sum))
	}
	return validateProbability("threshold", threshold)
}

func validateProbability(field string, v float64) error {
	if !(v > 0 && v < 1) {
		return core.NewValidationError(field, fmt.Sprintf("must be in (0,1), got %g", v))
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
