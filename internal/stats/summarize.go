package stats

import (
	"fmt"
	"math"

	"expcalc/domain/core"
	"expcalc/domain/experiment"

	"github.com/montanaflynn/stats"
)

// SummarizeBinary collapses per-unit 0/1 outcomes into an arm summary. Any
// non-zero value counts as a success; NaN values are dropped.
func SummarizeBinary(name string, values []float64) (experiment.GroupSummary, error) {
	clean := dropNaN(values)
	if len(clean) == 0 {
		return experiment.GroupSummary{}, core.NewValidationError(name, "has no observations")
	}

	successes := 0
	for _, v := range clean {
		if v != 0 {
			successes++
		}
	}

	return experiment.GroupSummary{
		Name:         name,
		SampleSize:   len(clean),
		SuccessCount: successes,
	}, nil
}

// SummarizeContinuous collapses per-unit observations into mean and sample
// standard deviation. NaN values are dropped.
func SummarizeContinuous(name string, values []float64) (experiment.GroupSummary, error) {
	clean := dropNaN(values)
	if len(clean) == 0 {
		return experiment.GroupSummary{}, core.NewValidationError(name, "has no observations")
	}

	mean, err := stats.Mean(clean)
	if err != nil {
		return experiment.GroupSummary{}, fmt.Errorf("mean of %s: %w", name, err)
	}

	stdDev := 0.0
	if len(clean) > 1 {
		stdDev, err = stats.StandardDeviationSample(clean)
		if err != nil {
			return experiment.GroupSummary{}, fmt.Errorf("standard deviation of %s: %w", name, err)
		}
	}

	return experiment.GroupSummary{
		Name:       name,
		SampleSize: len(clean),
		Mean:       mean,
		StdDev:     stdDev,
	}, nil
}

// Summarize dispatches on the outcome type.
func Summarize(outcome experiment.OutcomeType, name string, values []float64) (experiment.GroupSummary, error) {
	switch outcome {
	case experiment.OutcomeBinary:
		return SummarizeBinary(name, values)
	case experiment.OutcomeContinuous:
		return SummarizeContinuous(name, values)
	}
	return experiment.GroupSummary{}, core.NewValidationError("outcome", fmt.Sprintf("unknown outcome type %q", outcome))
}

func dropNaN(values []float64) []float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	return clean
}
