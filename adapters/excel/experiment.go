package excel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/internal/stats"
)

// Layout is the shape of an experiment sheet
type Layout string

const (
	// LayoutSummary has one row per arm with pre-aggregated columns
	LayoutSummary Layout = "summary"
	// LayoutRaw has one row per unit with a group and an observed value
	LayoutRaw Layout = "raw"
)

// ExperimentReader builds an ExperimentSummary from a spreadsheet
type ExperimentReader struct {
	config ReaderConfig
	reader *DataReader
}

// NewExperimentReader creates a reader for an .xlsx or .csv file
func NewExperimentReader(path string, config ReaderConfig) *ExperimentReader {
	return &ExperimentReader{
		config: normalize(config),
		reader: NewDataReader(path, config.Sheet),
	}
}

func normalize(c ReaderConfig) ReaderConfig {
	for _, col := range []*string{&c.GroupColumn, &c.SizeColumn, &c.SuccessColumn, &c.MeanColumn, &c.StdDevColumn, &c.ValueColumn} {
		*col = strings.ToLower(strings.TrimSpace(*col))
	}
	return c
}

// ReadExperiment reads the sheet and returns the arms in the order they
// first appear. The first arm is the control. outcome may be empty, in which
// case it is inferred from the columns (summary) or the values (raw).
func (r *ExperimentReader) ReadExperiment(outcome experiment.OutcomeType) (experiment.ExperimentSummary, Layout, error) {
	data, err := r.reader.ReadData()
	if err != nil {
		return experiment.ExperimentSummary{}, "", err
	}
	return r.Parse(data, outcome)
}

// Parse converts already-read sheet data
func (r *ExperimentReader) Parse(data *ExcelData, outcome experiment.OutcomeType) (experiment.ExperimentSummary, Layout, error) {
	c := r.config
	if !data.HasColumn(c.GroupColumn) {
		return experiment.ExperimentSummary{}, "", core.NewValidationError("sheet", fmt.Sprintf("missing %q column", c.GroupColumn))
	}

	switch {
	case data.HasColumn(c.SizeColumn):
		summary, err := r.parseSummary(data, outcome)
		return summary, LayoutSummary, err
	case data.HasColumn(c.ValueColumn):
		summary, err := r.parseRaw(data, outcome)
		return summary, LayoutRaw, err
	}
	return experiment.ExperimentSummary{}, "", core.NewValidationError("sheet",
		fmt.Sprintf("need a %q column (summary layout) or a %q column (raw layout)", c.SizeColumn, c.ValueColumn))
}

func (r *ExperimentReader) parseSummary(data *ExcelData, outcome experiment.OutcomeType) (experiment.ExperimentSummary, error) {
	c := r.config
	if outcome == "" {
		if data.HasColumn(c.SuccessColumn) {
			outcome = experiment.OutcomeBinary
		} else {
			outcome = experiment.OutcomeContinuous
		}
	}

	summary := experiment.ExperimentSummary{Outcome: outcome}
	for i, row := range data.Rows {
		line := i + 2
		size, err := parseInt(row[c.SizeColumn], c.SizeColumn, line)
		if err != nil {
			return experiment.ExperimentSummary{}, err
		}
		g := experiment.GroupSummary{Name: row[c.GroupColumn], SampleSize: size}

		switch outcome {
		case experiment.OutcomeBinary:
			if g.SuccessCount, err = parseInt(row[c.SuccessColumn], c.SuccessColumn, line); err != nil {
				return experiment.ExperimentSummary{}, err
			}
		case experiment.OutcomeContinuous:
			if g.Mean, err = parseFloat(row[c.MeanColumn], c.MeanColumn, line); err != nil {
				return experiment.ExperimentSummary{}, err
			}
			if g.StdDev, err = parseFloat(row[c.StdDevColumn], c.StdDevColumn, line); err != nil {
				return experiment.ExperimentSummary{}, err
			}
		default:
			return experiment.ExperimentSummary{}, core.NewValidationError("outcome", fmt.Sprintf("unknown outcome type %q", outcome))
		}
		summary.Groups = append(summary.Groups, g)
	}
	return summary, nil
}

func (r *ExperimentReader) parseRaw(data *ExcelData, outcome experiment.OutcomeType) (experiment.ExperimentSummary, error) {
	c := r.config
	var order []string
	values := make(map[string][]float64)

	for i, row := range data.Rows {
		name := row[c.GroupColumn]
		if name == "" {
			return experiment.ExperimentSummary{}, core.NewValidationError(c.GroupColumn, fmt.Sprintf("empty on row %d", i+2))
		}
		cell := row[c.ValueColumn]
		if cell == "" {
			continue
		}
		v, err := parseFloat(cell, c.ValueColumn, i+2)
		if err != nil {
			return experiment.ExperimentSummary{}, err
		}
		if _, seen := values[name]; !seen {
			order = append(order, name)
		}
		values[name] = append(values[name], v)
	}

	if outcome == "" {
		outcome = inferOutcome(values)
	}

	summary := experiment.ExperimentSummary{Outcome: outcome}
	for _, name := range order {
		g, err := stats.Summarize(outcome, name, values[name])
		if err != nil {
			return experiment.ExperimentSummary{}, err
		}
		summary.Groups = append(summary.Groups, g)
	}
	return summary, nil
}

// inferOutcome treats data as binary when every value is 0 or 1
func inferOutcome(values map[string][]float64) experiment.OutcomeType {
	for _, vs := range values {
		for _, v := range vs {
			if v != 0 && v != 1 {
				return experiment.OutcomeContinuous
			}
		}
	}
	return experiment.OutcomeBinary
}

// ObservedCounts returns the number of units per arm, for the SRM test
func ObservedCounts(summary experiment.ExperimentSummary) []int {
	counts := make([]int, len(summary.Groups))
	for i, g := range summary.Groups {
		counts[i] = g.SampleSize
	}
	return counts
}

func parseInt(cell, column string, line int) (int, error) {
	f, err := parseFloat(cell, column, line)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, core.NewValidationError(column, fmt.Sprintf("row %d: %q is not a whole number", line, cell))
	}
	return int(f), nil
}

// parseFloat accepts thousands separators since spreadsheets often export them
func parseFloat(cell, column string, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	if err != nil {
		return 0, core.NewValidationError(column, fmt.Sprintf("row %d: %q is not a number", line, cell))
	}
	return v, nil
}
