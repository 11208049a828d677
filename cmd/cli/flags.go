package main

import (
	"fmt"

	"expcalc/domain/experiment"

	"github.com/spf13/cobra"
)

// designFlags are the planning parameters shared by sample-size, mde and curve
type designFlags struct {
	outcome        string
	baseline       float64
	stdDev         float64
	mde            float64
	alpha          float64
	power          float64
	effectType     string
	comparisonType string
	allocation     []float64
	bonferroni     int
	fraction       float64
}

func (f *designFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.outcome, "outcome", string(experiment.OutcomeBinary), "binary or continuous")
	cmd.Flags().Float64Var(&f.baseline, "baseline", 0, "Control proportion or mean")
	cmd.Flags().Float64Var(&f.stdDev, "std-dev", 0, "Control standard deviation (continuous)")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0, "Significance level (default from configuration)")
	cmd.Flags().Float64Var(&f.power, "power", 0, "Target power (default from configuration)")
	cmd.Flags().StringVar(&f.effectType, "effect-type", "", "absolute or relative")
	cmd.Flags().StringVar(&f.comparisonType, "comparison", "", "all_vs_control or all_pairwise")
	cmd.Flags().Float64SliceVar(&f.allocation, "allocation", nil, "Traffic share of each arm (default 50/50)")
	cmd.Flags().IntVar(&f.bonferroni, "bonferroni", -1, "Apply Bonferroni; 0 derives the count from the comparisons")
	cmd.Flags().Float64Var(&f.fraction, "information-fraction", 0, "Apply O'Brien-Fleming at this interim look")
	_ = cmd.MarkFlagRequired("baseline")
}

func (f *designFlags) powerRequest() (experiment.PowerRequest, error) {
	outcome, err := experiment.ParseOutcomeType(f.outcome)
	if err != nil {
		return experiment.PowerRequest{}, fmt.Errorf("--outcome: %w", err)
	}
	return experiment.PowerRequest{
		Outcome:  outcome,
		Baseline: experiment.Baseline{Value: f.baseline, StdDev: f.stdDev},
		Config: experiment.TestConfig{
			SignificanceLevel:       f.alpha,
			PowerLevel:              f.power,
			EffectType:              experiment.EffectType(f.effectType),
			MinimumDetectableEffect: f.mde,
			AllocationRatios:        f.allocation,
			ComparisonType:          experiment.ComparisonType(f.comparisonType),
		},
		Corrections: corrections(f.bonferroni, f.fraction),
	}, nil
}

// corrections turns the flag values into a correction config. A negative
// bonferroni count or a zero fraction leaves that correction off.
func corrections(bonferroni int, fraction float64) experiment.CorrectionConfig {
	var cfg experiment.CorrectionConfig
	if bonferroni >= 0 {
		cfg.MultipleComparisons = &experiment.MultipleComparisons{NumberOfComparisons: bonferroni}
	}
	if fraction != 0 {
		cfg.SequentialTesting = &experiment.SequentialTesting{InformationFraction: fraction}
	}
	return cfg
}
