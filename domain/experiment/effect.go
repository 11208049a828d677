package experiment

import (
	"fmt"
	"math"

	"expcalc/domain/core"
)

// ResolveTarget applies an effect to a baseline value. Binary targets must
// remain strictly inside the unit interval.
func ResolveTarget(baseline, effect float64, effectType EffectType, outcome OutcomeType) (float64, error) {
	var target float64
	switch effectType {
	case EffectAbsolute:
		target = baseline + effect
	case EffectRelative:
		target = baseline * (1 + effect)
	default:
		return 0, core.NewValidationError("effect_type", "must be absolute or relative")
	}

	switch outcome {
	case OutcomeBinary:
		if !(target > 0 && target < 1) {
			return 0, fmt.Errorf("%w: baseline %g with %s effect %g gives %g",
				core.ErrTargetOutOfRange, baseline, effectType, effect, target)
		}
	case OutcomeContinuous:
		if math.IsNaN(target) || math.IsInf(target, 0) {
			return 0, core.NewDomainError("target %g is not finite", target)
		}
	default:
		return 0, core.NewValidationError("outcome", "must be binary or continuous")
	}

	return target, nil
}

// ImpliedEffect is the inverse of ResolveTarget: the effect that carries
// baseline to target, expressed in the requested unit.
func ImpliedEffect(baseline, target float64, effectType EffectType) (float64, error) {
	switch effectType {
	case EffectAbsolute:
		return target - baseline, nil
	case EffectRelative:
		if baseline == 0 {
			return 0, core.ErrZeroBaseline
		}
		return target/baseline - 1, nil
	}
	return 0, core.NewValidationError("effect_type", "must be absolute or relative")
}

// AbsoluteDifference converts an effect in either unit to the raw difference
// target - baseline.
func AbsoluteDifference(baseline, effect float64, effectType EffectType) (float64, error) {
	switch effectType {
	case EffectAbsolute:
		return effect, nil
	case EffectRelative:
		if baseline == 0 {
			return 0, core.ErrZeroBaseline
		}
		return baseline * effect, nil
	}
	return 0, core.NewValidationError("effect_type", "must be absolute or relative")
}

// StandardizedEffect is Cohen's d for continuous outcomes and Cohen's h for
// binary ones. It is reported alongside power results and never fed back
// into the solver.
func StandardizedEffect(baseline, target, stdDev float64, outcome OutcomeType) (float64, error) {
	switch outcome {
	case OutcomeBinary:
		return 2*math.Asin(math.Sqrt(target)) - 2*math.Asin(math.Sqrt(baseline)), nil
	case OutcomeContinuous:
		if stdDev == 0 {
			return 0, core.ErrZeroVariance
		}
		return (target - baseline) / stdDev, nil
	}
	return 0, core.NewValidationError("outcome", "must be binary or continuous")
}
