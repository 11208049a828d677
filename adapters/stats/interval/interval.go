// Package interval builds point estimates, confidence intervals and
// significance decisions for observed experiment arms.
package interval

import (
	"fmt"
	"math"

	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/internal/stats"
)

// Engine computes intervals at a supplied significance level. Callers pass
// the level produced by the correction pipeline, not the nominal one.
type Engine struct {
	dist *stats.Distributions
}

// NewEngine creates a new interval engine
func NewEngine() *Engine {
	return &Engine{dist: stats.NewDistributions()}
}

// GroupEstimate returns the point estimate of one arm with a normal
// interval: p +/- z*sqrt(p(1-p)/n) or mean +/- z*s/sqrt(n).
func (e *Engine) GroupEstimate(outcome experiment.OutcomeType, name string, g experiment.GroupSummary, alpha float64) experiment.GroupEstimate {
	estimate := g.Estimate(outcome)
	se := g.StandardError(outcome)
	half := e.dist.NormalQuantile(1-alpha/2) * se

	return experiment.GroupEstimate{
		Group:              name,
		SampleSize:         g.SampleSize,
		Estimate:           estimate,
		StandardError:      se,
		ConfidenceInterval: experiment.Interval{Low: estimate - half, High: estimate + half},
	}
}

// difference is the shared shape of the binary and continuous computations.
type difference struct {
	effect     float64
	se         float64
	correction float64 // widens the half-width only
	df         float64 // 0 means normal reference distribution
}

// Compare estimates the effect of treatment over baseline and decides
// significance at alpha. The interval excludes 0 exactly when the two-sided
// p-value of the same statistic is below alpha.
func (e *Engine) Compare(outcome experiment.OutcomeType, effectType experiment.EffectType, baseline, treatment experiment.GroupSummary, alpha float64) (experiment.ComparisonResult, error) {
	var (
		diff difference
		err  error
	)
	switch outcome {
	case experiment.OutcomeBinary:
		diff, err = binaryDifference(effectType, baseline, treatment)
	case experiment.OutcomeContinuous:
		diff, err = continuousDifference(effectType, baseline, treatment)
	default:
		err = core.NewValidationError("outcome", fmt.Sprintf("unknown outcome type %q", outcome))
	}
	if err != nil {
		return experiment.ComparisonResult{}, err
	}

	var crit, statistic, pValue float64
	excess := math.Max(math.Abs(diff.effect)-diff.correction, 0)
	statistic = math.Copysign(excess/diff.se, diff.effect)
	if diff.df > 0 {
		crit = e.dist.StudentsTQuantile(1-alpha/2, diff.df)
		pValue = e.dist.TTestPValue(statistic, diff.df)
	} else {
		crit = e.dist.NormalQuantile(1 - alpha/2)
		pValue = e.dist.NormalTwoSidedPValue(statistic)
	}

	half := crit*diff.se + diff.correction
	ci := experiment.Interval{Low: diff.effect - half, High: diff.effect + half}

	return experiment.ComparisonResult{
		BaselineEstimate:          baseline.Estimate(outcome),
		TreatmentEstimate:         treatment.Estimate(outcome),
		EffectType:                effectType,
		Effect:                    diff.effect,
		StandardError:             diff.se,
		ConfidenceInterval:        ci,
		TestStatistic:             statistic,
		DegreesOfFreedom:          diff.df,
		PValue:                    pValue,
		AdjustedSignificanceLevel: alpha,
		IsSignificant:             ci.Excludes(0),
	}, nil
}

// binaryDifference uses the unpooled normal approximation to a difference of
// proportions with a continuity correction of (1/nA + 1/nB)/2.
func binaryDifference(effectType experiment.EffectType, a, b experiment.GroupSummary) (difference, error) {
	pA := a.Estimate(experiment.OutcomeBinary)
	pB := b.Estimate(experiment.OutcomeBinary)
	seA := a.StandardError(experiment.OutcomeBinary)
	seB := b.StandardError(experiment.OutcomeBinary)
	cc := 0.5 * (1/float64(a.SampleSize) + 1/float64(b.SampleSize))

	return scaleDifference(effectType, pA, pB, seA, seB, cc, 0)
}

// continuousDifference uses Welch's standard error with Welch-Satterthwaite
// degrees of freedom.
func continuousDifference(effectType experiment.EffectType, a, b experiment.GroupSummary) (difference, error) {
	if a.SampleSize < 2 || b.SampleSize < 2 {
		return difference{}, core.NewDomainError("welch interval needs at least 2 observations per group, got %d and %d",
			a.SampleSize, b.SampleSize)
	}

	seA := a.StandardError(experiment.OutcomeContinuous)
	seB := b.StandardError(experiment.OutcomeContinuous)
	df := WelchDegreesOfFreedom(a.StdDev, a.SampleSize, b.StdDev, b.SampleSize)

	return scaleDifference(effectType, a.Mean, b.Mean, seA, seB, 0, df)
}

// scaleDifference expresses the difference in the requested unit. Relative
// effects use the delta method on B/A - 1:
//
//	se^2 = seB^2/A^2 + B^2*seA^2/A^4
func scaleDifference(effectType experiment.EffectType, valueA, valueB, seA, seB, cc, df float64) (difference, error) {
	var diff difference
	switch effectType {
	case experiment.EffectAbsolute:
		diff = difference{
			effect:     valueB - valueA,
			se:         math.Sqrt(seA*seA + seB*seB),
			correction: cc,
			df:         df,
		}
	case experiment.EffectRelative:
		if valueA == 0 {
			return difference{}, core.ErrZeroBaseline
		}
		a2 := valueA * valueA
		diff = difference{
			effect:     valueB/valueA - 1,
			se:         math.Sqrt(seB*seB/a2 + valueB*valueB*seA*seA/(a2*a2)),
			correction: cc / math.Abs(valueA),
			df:         df,
		}
	default:
		return difference{}, core.NewValidationError("effect_type", fmt.Sprintf("unknown effect type %q", effectType))
	}

	if diff.se == 0 || math.IsNaN(diff.se) {
		return difference{}, core.ErrZeroVariance
	}
	return diff, nil
}

// WelchDegreesOfFreedom is the Welch-Satterthwaite approximation for two
// samples with unequal variances.
func WelchDegreesOfFreedom(sdA float64, nA int, sdB float64, nB int) float64 {
	vA := sdA * sdA / float64(nA)
	vB := sdB * sdB / float64(nB)
	num := (vA + vB) * (vA + vB)
	den := vA*vA/float64(nA-1) + vB*vB/float64(nB-1)
	if den == 0 {
		return 0
	}
	return num / den
}
