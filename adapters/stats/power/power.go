// Package power solves the two-sample power relation for either the required
// sample size or the minimum detectable effect of an experiment design.
//
// For one comparison between arms A (baseline) and B, with sizes nA and nB
// and true difference delta, the power of a two-sided test at level alpha is
//
//	power = T_df((|delta| - t_{1-alpha/2,df} * sd0) / sd1),  df = nA + nB - 2
//
// where sd0 is the standard deviation of the difference under the null and
// sd1 under the alternative. Binary outcomes use the pooled proportion for
// sd0; continuous outcomes share the baseline standard deviation across arms.
package power

import (
	"math"

	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/internal/stats"
)

// Solver holds the numeric bounds of the power calculations. The zero value
// is not usable; construct with NewSolver.
type Solver struct {
	dist      *stats.Distributions
	bisection stats.Bisection

	// MaxRefinements caps the fixed-point iterations that replace normal
	// quantiles with Student's t quantiles at the solved degrees of freedom.
	MaxRefinements int

	// MaxSearchSpan bounds the continuous MDE search, in baseline standard
	// deviations.
	MaxSearchSpan float64
}

// NewSolver creates a solver with the default bounds.
func NewSolver() *Solver {
	return &Solver{
		dist:           stats.NewDistributions(),
		bisection:      stats.DefaultBisection(),
		MaxRefinements: 50,
		MaxSearchSpan:  1e6,
	}
}

// spread is the per-unit standard deviation of a difference between two
// arms, under the null (s0) and the alternative (s1). Dividing by sqrt(N)
// gives the standard deviation at a total of N units split kA:kB.
type spread struct {
	s0, s1 float64
}

func (s *Solver) spreadFor(outcome experiment.OutcomeType, baseline, target, stdDev, kA, kB float64) (spread, error) {
	switch outcome {
	case experiment.OutcomeBinary:
		pooled := (kA*baseline + kB*target) / (kA + kB)
		s0 := math.Sqrt(pooled * (1 - pooled) * (1/kA + 1/kB))
		s1 := math.Sqrt(baseline*(1-baseline)/kA + target*(1-target)/kB)
		return spread{s0: s0, s1: s1}, nil
	case experiment.OutcomeContinuous:
		sd := stdDev * math.Sqrt(1/kA+1/kB)
		return spread{s0: sd, s1: sd}, nil
	}
	return spread{}, core.NewValidationError("outcome", "must be binary or continuous")
}

// checkBaseline rejects baselines for which power is undefined.
func checkBaseline(outcome experiment.OutcomeType, b experiment.Baseline) error {
	switch outcome {
	case experiment.OutcomeBinary:
		if !(b.Value > 0 && b.Value < 1) {
			return core.NewDomainError("baseline proportion %g has zero variance", b.Value)
		}
	case experiment.OutcomeContinuous:
		if b.StdDev == 0 {
			return core.ErrZeroVariance
		}
	default:
		return core.NewValidationError("outcome", "must be binary or continuous")
	}
	return nil
}

// powerAt evaluates the power relation at a total of n units. Without a
// positive df there is no variance estimate and power is undefined.
func (s *Solver) powerAt(sp spread, delta, n, kA, kB, alpha float64) (float64, error) {
	df := n*(kA+kB) - 2
	if !(df > 0) {
		return 0, core.ErrTooFewUnits
	}
	crit := s.dist.StudentsTQuantile(1-alpha/2, df)
	z := (math.Abs(delta)*math.Sqrt(n) - crit*sp.s0) / sp.s1
	return s.dist.StudentsTCDF(z, df), nil
}

// Power returns the power of a single comparison with fixed arm sizes.
func (s *Solver) Power(outcome experiment.OutcomeType, baseline experiment.Baseline, target float64, nA, nB int, alpha float64) (float64, error) {
	if err := checkBaseline(outcome, baseline); err != nil {
		return 0, err
	}
	if nA <= 0 || nB <= 0 {
		return 0, core.NewValidationError("sample_sizes", "must be positive")
	}
	if nA < experiment.MinArmSize || nB < experiment.MinArmSize {
		return 0, core.ErrTooFewUnits
	}
	sp, err := s.spreadFor(outcome, baseline.Value, target, baseline.StdDev, float64(nA), float64(nB))
	if err != nil {
		return 0, err
	}
	if sp.s1 == 0 {
		return 0, core.ErrZeroVariance
	}
	return s.powerAt(sp, target-baseline.Value, 1, float64(nA), float64(nB), alpha)
}
