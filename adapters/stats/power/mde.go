package power

import (
	"math"

	"expcalc/domain/core"
	"expcalc/domain/experiment"
)

// MDEInput is a fully validated minimum detectable effect problem with
// fixed per-arm sample sizes. Alpha is the significance level after
// corrections.
type MDEInput struct {
	Outcome     experiment.OutcomeType
	Baseline    experiment.Baseline
	Config      experiment.TestConfig
	SampleSizes []int
	Alpha       float64
}

// SolveMDE returns the smallest upward effect that every comparison of the
// design detects with the requested power. Power is monotone increasing in
// the effect, so each comparison's threshold is found by bisection on the
// raw difference; the largest threshold across comparisons is reported in
// the caller's effect unit.
func (s *Solver) SolveMDE(in MDEInput) (experiment.MDEResult, error) {
	if err := checkBaseline(in.Outcome, in.Baseline); err != nil {
		return experiment.MDEResult{}, err
	}
	if in.Config.EffectType == experiment.EffectRelative && in.Baseline.Value == 0 {
		return experiment.MDEResult{}, core.ErrZeroBaseline
	}

	for _, n := range in.SampleSizes {
		if n < experiment.MinArmSize {
			return experiment.MDEResult{}, core.ErrTooFewUnits
		}
	}

	pairs, err := experiment.Comparisons(in.Config.ComparisonType, len(in.SampleSizes))
	if err != nil {
		return experiment.MDEResult{}, core.NewValidationError("sample_sizes", err.Error())
	}

	var (
		result   experiment.MDEResult
		maxDelta = -1.0
	)
	for _, pair := range pairs {
		delta, iterations, err := s.minimumDifference(in, in.SampleSizes[pair.Baseline], in.SampleSizes[pair.Treatment])
		if err != nil {
			return experiment.MDEResult{}, err
		}
		result.Iterations += iterations
		if delta > maxDelta {
			maxDelta = delta
			result.LimitingComparison = pair
		}
	}

	target := in.Baseline.Value + maxDelta
	mde, err := experiment.ImpliedEffect(in.Baseline.Value, target, in.Config.EffectType)
	if err != nil {
		return experiment.MDEResult{}, err
	}
	standardized, err := experiment.StandardizedEffect(in.Baseline.Value, target, in.Baseline.StdDev, in.Outcome)
	if err != nil {
		return experiment.MDEResult{}, err
	}

	result.MinimumDetectableEffect = mde
	result.AbsoluteDifference = maxDelta
	result.TargetValue = target
	result.StandardizedEffect = standardized
	result.EffectType = in.Config.EffectType
	result.AdjustedSignificanceLevel = in.Alpha
	return result, nil
}

// minimumDifference bisects for the raw difference at which one comparison
// reaches the requested power.
func (s *Solver) minimumDifference(in MDEInput, nA, nB int) (float64, int, error) {
	baseline := in.Baseline.Value
	kA, kB := float64(nA), float64(nB)

	shortfall := func(delta float64) float64 {
		sp, err := s.spreadFor(in.Outcome, baseline, baseline+delta, in.Baseline.StdDev, kA, kB)
		if err != nil || sp.s1 == 0 {
			return math.NaN()
		}
		p, err := s.powerAt(sp, delta, 1, kA, kB, in.Alpha)
		if err != nil {
			return math.NaN()
		}
		return p - in.Config.PowerLevel
	}

	if shortfall(0) >= 0 {
		return 0, 0, core.NewDomainError("power %g is reached with no effect at alpha %g", in.Config.PowerLevel, in.Alpha)
	}

	var hi float64
	switch in.Outcome {
	case experiment.OutcomeBinary:
		// The target proportion must stay below 1.
		hi = (1 - baseline) * (1 - 1e-9)
	case experiment.OutcomeContinuous:
		unit := in.Baseline.StdDev * math.Sqrt(1/kA+1/kB)
		var err error
		hi, err = s.bisection.Bracket(shortfall, 0, unit, s.MaxSearchSpan*in.Baseline.StdDev)
		if err != nil {
			return 0, 0, err
		}
	}

	return s.bisection.Root(shortfall, 0, hi)
}
