package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"expcalc/domain/experiment"
)

func sampleReport() experiment.SignificanceReport {
	return experiment.SignificanceReport{
		Outcome:                   experiment.OutcomeBinary,
		EffectType:                experiment.EffectAbsolute,
		NominalSignificanceLevel:  0.05,
		AdjustedSignificanceLevel: 0.025,
		Groups: []experiment.GroupEstimate{
			{Group: "control", SampleSize: 10000, Estimate: 0.10, ConfidenceInterval: experiment.Interval{Low: 0.094, High: 0.106}},
			{Group: "a|b", SampleSize: 10000, Estimate: 0.115, ConfidenceInterval: experiment.Interval{Low: 0.109, High: 0.121}},
		},
		Comparisons: []experiment.ComparisonResult{
			{Name: "a|b vs control", Effect: 0.015, ConfidenceInterval: experiment.Interval{Low: 0.005, High: 0.025}, PValue: 0.00067, IsSignificant: true},
		},
	}
}

func TestSignificanceMarkdown(t *testing.T) {
	md := string(SignificanceMarkdown("Checkout test", sampleReport(), nil))

	assert.True(t, strings.HasPrefix(md, "# Checkout test\n"))
	assert.Contains(t, md, "0.025 after corrections")
	assert.Contains(t, md, "| control | 10000 | 10.00% | [9.40%, 10.60%] |")
	assert.Contains(t, md, `| a\|b vs control | +1.50 pp | [+0.50 pp, +2.50 pp] | 0.0007 | **yes** |`)
	assert.NotContains(t, md, "Sample ratio")
}

func TestSignificanceMarkdownWithSRM(t *testing.T) {
	srm := &experiment.SRMResult{ChiSquareStatistic: 100, PValue: 1e-23, IsMismatched: true}
	md := string(SignificanceMarkdown("Checkout test", sampleReport(), srm))

	assert.Contains(t, md, "**Sample ratio mismatch** (chi-square 100.00, p = < 0.0001)")
}

func TestRelativeEffectFormatting(t *testing.T) {
	assert.Equal(t, "+15.00%", formatEffect(experiment.OutcomeBinary, experiment.EffectRelative, 0.15))
	assert.Equal(t, "-2.5", formatEffect(experiment.OutcomeContinuous, experiment.EffectAbsolute, -2.5))
	assert.Equal(t, "104.2", formatValue(experiment.OutcomeContinuous, 104.25))
}

func TestSampleSizeMarkdown(t *testing.T) {
	result := experiment.SampleSizeResult{
		SampleSizePerGroup: []experiment.GroupSampleSize{
			{Group: "control", Allocation: 0.5, SampleSize: 3842},
			{Group: "variant_1", Allocation: 0.5, SampleSize: 3842},
		},
		TotalSampleSize:           7684,
		LimitingComparison:        experiment.Comparison{Baseline: 0, Treatment: 1},
		AdjustedSignificanceLevel: 0.05,
		AchievedPower:             0.8001,
	}
	md := string(SampleSizeMarkdown("Plan", result))

	assert.Contains(t, md, "Total sample size: **7684**")
	assert.Contains(t, md, "Limiting comparison: variant_1 vs control.")
	assert.Contains(t, md, "| variant_1 | 50.0% | 3842 |")
}

func TestToHTML(t *testing.T) {
	page := string(ToHTML("Checkout test", SignificanceMarkdown("Checkout test", sampleReport(), nil)))

	assert.Contains(t, page, "<title>Checkout test</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<strong>yes</strong>")
}
