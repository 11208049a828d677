package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions provides the reference distributions used by the
// calculators. It is stateless and safe for concurrent use.
type Distributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *Distributions {
	return &Distributions{}
}

// NormalCDF computes cumulative distribution function for standard normal
func (d *Distributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile computes quantile function for standard normal (inverse CDF)
func (d *Distributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// NormalTwoSidedPValue returns P(|Z| >= |z|).
func (d *Distributions) NormalTwoSidedPValue(z float64) float64 {
	return 2 * distuv.UnitNormal.Survival(math.Abs(z))
}

// StudentsTCDF computes the CDF of Student's t with df degrees of freedom.
// Infinite df is the normal; df that is not positive yields NaN.
func (d *Distributions) StudentsTCDF(t, df float64) float64 {
	if math.IsInf(df, 1) {
		return d.NormalCDF(t)
	}
	if !(df > 0) {
		return math.NaN()
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.CDF(t)
}

// StudentsTQuantile computes the inverse CDF of Student's t.
func (d *Distributions) StudentsTQuantile(p, df float64) float64 {
	if math.IsInf(df, 1) {
		return d.NormalQuantile(p)
	}
	if !(df > 0) {
		return math.NaN()
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(p)
}

// TTestPValue computes the two-tailed p-value of a t statistic
func (d *Distributions) TTestPValue(tStatistic, df float64) float64 {
	if math.IsInf(df, 1) {
		return d.NormalTwoSidedPValue(tStatistic)
	}
	if !(df > 0) {
		return math.NaN()
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * tDist.Survival(math.Abs(tStatistic))
}

// ChiSquarePValue computes the upper-tail p-value of a chi-square statistic
func (d *Distributions) ChiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	return chiDist.Survival(chiSquare)
}

// ChiSquareQuantile returns the critical value exceeded with probability 1-p.
func (d *Distributions) ChiSquareQuantile(p float64, degreesOfFreedom int) float64 {
	return distuv.ChiSquared{K: float64(degreesOfFreedom)}.Quantile(p)
}
