// Package correction adjusts the significance level of an experiment for
// multiplicity and for interim looks at the data.
package correction

import (
	"fmt"
	"math"

	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/internal/stats"
)

// MinimumAlpha floors the O'Brien-Fleming boundary, which underflows to 0
// for very small information fractions.
const MinimumAlpha = 1e-13

// Bonferroni divides the significance level across m comparisons.
func Bonferroni(alpha float64, m int) (float64, error) {
	if m < 1 {
		return 0, core.NewValidationError("number_of_comparisons", fmt.Sprintf("must be positive, got %d", m))
	}
	return alpha / float64(m), nil
}

// OBrienFleming returns the nominal level at which an interim look with the
// given information fraction may be declared significant:
//
//	2 * (1 - Phi(Phi^-1(1 - alpha/2) / sqrt(t)))
//
// At t = 1 this is alpha itself.
func OBrienFleming(alpha, informationFraction float64) (float64, error) {
	if !(informationFraction > 0 && informationFraction <= 1) {
		return 0, fmt.Errorf("%w: got %g", core.ErrInformationFraction, informationFraction)
	}
	if informationFraction == 1 {
		return alpha, nil
	}

	dist := stats.NewDistributions()
	boundary := dist.NormalQuantile(1-alpha/2) / math.Sqrt(informationFraction)
	adjusted := dist.NormalTwoSidedPValue(boundary)
	return math.Max(adjusted, MinimumAlpha), nil
}

// Stage records the level after one step of the pipeline.
type Stage struct {
	Name  string  `json:"name"`
	Alpha float64 `json:"alpha"`
}

// Adjustment is the outcome of running the pipeline.
type Adjustment struct {
	Nominal             float64 `json:"nominal"`
	Adjusted            float64 `json:"adjusted"`
	NumberOfComparisons int     `json:"number_of_comparisons"`
	Stages              []Stage `json:"stages"`
}

// Pipeline applies the configured corrections in a fixed order:
// multiplicity first, then sequential spending on the result.
type Pipeline struct {
	config         experiment.CorrectionConfig
	comparisonType experiment.ComparisonType
	groups         int
}

// NewPipeline binds a correction config to a design.
func NewPipeline(config experiment.CorrectionConfig, comparisonType experiment.ComparisonType, groups int) *Pipeline {
	return &Pipeline{config: config, comparisonType: comparisonType, groups: groups}
}

// NumberOfComparisons is the Bonferroni family size: the explicit override
// when positive, otherwise the count implied by the comparison type.
func (p *Pipeline) NumberOfComparisons() int {
	if mc := p.config.MultipleComparisons; mc != nil && mc.NumberOfComparisons > 0 {
		return mc.NumberOfComparisons
	}
	return experiment.NumberOfComparisons(p.comparisonType, p.groups)
}

// Apply runs the pipeline on a nominal significance level.
func (p *Pipeline) Apply(alpha float64) (Adjustment, error) {
	adj := Adjustment{
		Nominal:             alpha,
		Adjusted:            alpha,
		NumberOfComparisons: 1,
	}

	if p.config.MultipleComparisons != nil {
		m := p.NumberOfComparisons()
		next, err := Bonferroni(adj.Adjusted, m)
		if err != nil {
			return Adjustment{}, err
		}
		adj.NumberOfComparisons = m
		adj.Adjusted = next
		adj.Stages = append(adj.Stages, Stage{Name: "bonferroni", Alpha: next})
	}

	if p.config.SequentialTesting != nil {
		next, err := OBrienFleming(adj.Adjusted, p.config.SequentialTesting.InformationFraction)
		if err != nil {
			return Adjustment{}, err
		}
		adj.Adjusted = next
		adj.Stages = append(adj.Stages, Stage{Name: "obrien_fleming", Alpha: next})
	}

	return adj, nil
}

// Adjust is a convenience wrapper returning only the adjusted level.
func Adjust(alpha float64, config experiment.CorrectionConfig, comparisonType experiment.ComparisonType, groups int) (float64, error) {
	adj, err := NewPipeline(config, comparisonType, groups).Apply(alpha)
	if err != nil {
		return 0, err
	}
	return adj.Adjusted, nil
}
