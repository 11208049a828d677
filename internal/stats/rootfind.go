package stats

import (
	"math"

	"expcalc/domain/core"
)

// Bisection finds a root of a monotone function on a bracketing interval.
// Iterations and interval width are both bounded so every call terminates.
type Bisection struct {
	MaxIterations int
	Tolerance     float64 // absolute width at which the bracket is accepted
}

// DefaultBisection caps at 200 halvings, which exhausts float64 precision on
// any finite starting interval.
func DefaultBisection() Bisection {
	return Bisection{MaxIterations: 200, Tolerance: 1e-12}
}

// Root narrows [lo, hi] onto the sign change of f and returns the end of the
// final bracket that shares the sign of f(hi), together with the number of
// iterations used. f(lo) and f(hi) must have opposite signs, otherwise a
// convergence error is returned.
func (b Bisection) Root(f func(float64) float64, lo, hi float64) (float64, int, error) {
	flo, fhi := f(lo), f(hi)
	if math.IsNaN(flo) || math.IsNaN(fhi) || flo*fhi > 0 {
		return 0, 0, core.NewConvergenceError(0, lo, hi)
	}
	if flo == 0 {
		return lo, 0, nil
	}
	if fhi == 0 {
		return hi, 0, nil
	}

	for i := 1; i <= b.MaxIterations; i++ {
		mid := lo + (hi-lo)/2
		fmid := f(mid)
		if math.IsNaN(fmid) {
			return 0, i, core.NewConvergenceError(i, lo, hi)
		}
		if fmid == 0 {
			return mid, i, nil
		}
		if (fmid > 0) == (flo > 0) {
			lo, flo = mid, fmid
		} else {
			hi = mid
		}
		if hi-lo <= b.Tolerance*math.Max(1, math.Abs(hi)) {
			return hi, i, nil
		}
	}
	return 0, b.MaxIterations, core.NewConvergenceError(b.MaxIterations, lo, hi)
}

// Bracket grows hi geometrically from start until f(hi) has a different
// sign from f(lo) or limit is passed.
func (b Bisection) Bracket(f func(float64) float64, lo, start, limit float64) (float64, error) {
	flo := f(lo)
	hi := start
	for i := 0; i < b.MaxIterations && hi <= limit; i++ {
		fhi := f(hi)
		if !math.IsNaN(fhi) && (fhi > 0) != (flo > 0) {
			return hi, nil
		}
		hi *= 2
	}
	return 0, core.NewConvergenceError(b.MaxIterations, lo, limit)
}
