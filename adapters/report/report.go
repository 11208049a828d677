// Package report renders calculation results as Markdown and HTML.
package report

import (
	"fmt"
	"strings"

	"expcalc/domain/experiment"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// SignificanceMarkdown renders a significance report. srm is optional.
func SignificanceMarkdown(title string, report experiment.SignificanceReport, srm *experiment.SRMResult) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Outcome: **%s**, effect: **%s**. ", report.Outcome, report.EffectType)
	fmt.Fprintf(&b, "Significance level %s", formatLevel(report.NominalSignificanceLevel))
	if report.AdjustedSignificanceLevel != report.NominalSignificanceLevel {
		fmt.Fprintf(&b, ", %s after corrections", formatLevel(report.AdjustedSignificanceLevel))
	}
	b.WriteString(".\n\n")

	if srm != nil {
		writeSRM(&b, *srm)
	}

	b.WriteString("## Groups\n\n")
	b.WriteString("| Group | Units | Estimate | Confidence interval |\n")
	b.WriteString("|---|---:|---:|---|\n")
	for _, g := range report.Groups {
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n",
			escape(g.Group), g.SampleSize,
			formatValue(report.Outcome, g.Estimate),
			formatInterval(g.ConfidenceInterval, func(v float64) string { return formatValue(report.Outcome, v) }))
	}
	b.WriteString("\n")

	b.WriteString("## Comparisons\n\n")
	b.WriteString("| Comparison | Effect | Confidence interval | p-value | Significant |\n")
	b.WriteString("|---|---:|---|---:|:---:|\n")
	for _, c := range report.Comparisons {
		effect := func(v float64) string { return formatEffect(report.Outcome, report.EffectType, v) }
		verdict := "no"
		if c.IsSignificant {
			verdict = "**yes**"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			escape(c.Name), effect(c.Effect), formatInterval(c.ConfidenceInterval, effect),
			formatPValue(c.PValue), verdict)
	}

	return []byte(b.String())
}

// SampleSizeMarkdown renders a sample size result
func SampleSizeMarkdown(title string, result experiment.SampleSizeResult) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Total sample size: **%d**. Achieved power %.1f%% at significance level %s.\n\n",
		result.TotalSampleSize, 100*result.AchievedPower, formatLevel(result.AdjustedSignificanceLevel))
	fmt.Fprintf(&b, "Limiting comparison: %s.\n\n", result.LimitingComparison)

	b.WriteString("| Group | Allocation | Sample size |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, g := range result.SampleSizePerGroup {
		fmt.Fprintf(&b, "| %s | %.1f%% | %d |\n", escape(g.Group), 100*g.Allocation, g.SampleSize)
	}
	return []byte(b.String())
}

func writeSRM(b *strings.Builder, srm experiment.SRMResult) {
	b.WriteString("## Sample ratio\n\n")
	if srm.IsMismatched {
		fmt.Fprintf(b, "> **Sample ratio mismatch** (chi-square %.2f, p = %s). Results may be biased.\n\n",
			srm.ChiSquareStatistic, formatPValue(srm.PValue))
		return
	}
	fmt.Fprintf(b, "No sample ratio mismatch (chi-square %.2f, p = %s).\n\n", srm.ChiSquareStatistic, formatPValue(srm.PValue))
}

// ToHTML renders Markdown into a complete HTML page
func ToHTML(title string, md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(md)

	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}

func formatValue(outcome experiment.OutcomeType, v float64) string {
	if outcome == experiment.OutcomeBinary {
		return fmt.Sprintf("%.2f%%", 100*v)
	}
	return fmt.Sprintf("%.4g", v)
}

func formatEffect(outcome experiment.OutcomeType, effectType experiment.EffectType, v float64) string {
	switch {
	case effectType == experiment.EffectRelative:
		return fmt.Sprintf("%+.2f%%", 100*v)
	case outcome == experiment.OutcomeBinary:
		return fmt.Sprintf("%+.2f pp", 100*v)
	}
	return fmt.Sprintf("%+.4g", v)
}

func formatInterval(i experiment.Interval, format func(float64) string) string {
	return fmt.Sprintf("[%s, %s]", format(i.Low), format(i.High))
}

func formatPValue(p float64) string {
	if p < 0.0001 {
		return "< 0.0001"
	}
	return fmt.Sprintf("%.4f", p)
}

func formatLevel(alpha float64) string {
	return fmt.Sprintf("%.4g", alpha)
}

// escape keeps group names from breaking table cells
func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
