// Package srm detects sample ratio mismatch with a chi-square goodness of
// fit test of observed arm sizes against the planned allocation.
package srm

import (
	"math"

	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/internal/stats"
)

// Tester runs the goodness of fit test
type Tester struct {
	dist *stats.Distributions
}

// NewTester creates a new SRM tester
func NewTester() *Tester {
	return &Tester{dist: stats.NewDistributions()}
}

// Name returns the test name
func (t *Tester) Name() string {
	return "sample_ratio_mismatch"
}

// Test computes chi^2 = sum (o - e)^2 / e with e = pi * sum(o) and
// groups - 1 degrees of freedom. Arms with pi = 0 and o = 0 contribute
// nothing; pi = 0 with observed traffic is undefined.
func (t *Tester) Test(observed []int, expected []float64, threshold float64) (experiment.SRMResult, error) {
	if threshold == 0 {
		threshold = experiment.DefaultSRMThreshold
	}
	if err := experiment.ValidateSRM(observed, expected, threshold); err != nil {
		return experiment.SRMResult{}, err
	}

	total := 0
	for _, o := range observed {
		total += o
	}
	if total == 0 {
		return experiment.SRMResult{}, core.ErrNoObservations
	}

	expectedCounts := make([]float64, len(observed))
	chiSquare := 0.0
	for i, o := range observed {
		e := expected[i] * float64(total)
		expectedCounts[i] = e
		if e == 0 {
			if o > 0 {
				return experiment.SRMResult{}, core.ErrZeroExpectedCount
			}
			continue
		}
		diff := float64(o) - e
		chiSquare += diff * diff / e
	}

	df := len(observed) - 1
	pValue := t.dist.ChiSquarePValue(chiSquare, df)

	return experiment.SRMResult{
		ChiSquareStatistic: chiSquare,
		DegreesOfFreedom:   df,
		PValue:             pValue,
		ExpectedCounts:     expectedCounts,
		Threshold:          threshold,
		IsMismatched:       pValue < threshold,
	}, nil
}

// CriticalValue returns the chi-square statistic above which the test flags
// a mismatch for the given number of arms.
func (t *Tester) CriticalValue(groups int, threshold float64) float64 {
	if groups < 2 {
		return math.Inf(1)
	}
	return t.dist.ChiSquareQuantile(1-threshold, groups-1)
}
