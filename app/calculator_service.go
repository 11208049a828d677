package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"expcalc/adapters/stats/correction"
	"expcalc/adapters/stats/interval"
	"expcalc/adapters/stats/power"
	"expcalc/adapters/stats/srm"
	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/internal"
	"expcalc/internal/errors"
	"expcalc/internal/metrics"
	"expcalc/models"
	"expcalc/ports"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Defaults fills request fields the caller left at their zero value
type Defaults struct {
	SignificanceLevel float64
	PowerLevel        float64
	SRMThreshold      float64
	CurveConcurrency  int
}

// DefaultDefaults mirrors the configuration defaults
func DefaultDefaults() Defaults {
	return Defaults{
		SignificanceLevel: 0.05,
		PowerLevel:        0.80,
		SRMThreshold:      experiment.DefaultSRMThreshold,
		CurveConcurrency:  4,
	}
}

// CalculatorService validates requests, applies the correction pipeline and
// dispatches to the solvers. Successful calculations are recorded when a
// ledger is configured.
type CalculatorService struct {
	solver    *power.Solver
	intervals *interval.Engine
	srm       *srm.Tester
	ledger    ports.CalculationRepository // nil disables recording
	defaults  Defaults
	logger    *internal.Logger
}

// NewCalculatorService creates a calculator service. ledger may be nil.
func NewCalculatorService(ledger ports.CalculationRepository, defaults Defaults, logger *internal.Logger) *CalculatorService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if defaults.CurveConcurrency < 1 {
		defaults.CurveConcurrency = 1
	}
	return &CalculatorService{
		solver:    power.NewSolver(),
		intervals: interval.NewEngine(),
		srm:       srm.NewTester(),
		ledger:    ledger,
		defaults:  defaults,
		logger:    logger.With("calculator"),
	}
}

var (
	_ ports.Calculator        = (*CalculatorService)(nil)
	_ ports.CalculationLookup = (*CalculatorService)(nil)
)

// SolveSampleSize returns the per-arm sizes needed to reach the requested power
func (s *CalculatorService) SolveSampleSize(ctx context.Context, req experiment.PowerRequest) (*experiment.SampleSizeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	req = s.withPowerDefaults(req)

	result, err := s.sampleSize(req)
	if err != nil {
		s.fail(core.CalculationSampleSize, start, err)
		return nil, err
	}
	result.CalculationID = s.record(ctx, core.CalculationSampleSize, req, result, start)

	s.logger.Debug("sample size %d total, limiting comparison %s", result.TotalSampleSize, result.LimitingComparison)
	return &result, nil
}

// SolveMinimumDetectableEffect returns the smallest effect detectable at fixed arm sizes
func (s *CalculatorService) SolveMinimumDetectableEffect(ctx context.Context, req experiment.MDERequest) (*experiment.MDEResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	req.PowerRequest = s.withPowerDefaults(allocationFor(req.PowerRequest, req.SampleSizes))

	result, err := s.mde(req.PowerRequest, req.SampleSizes)
	if err != nil {
		s.fail(core.CalculationMDE, start, err)
		return nil, err
	}
	metrics.ObserveBisection(result.Iterations)
	result.CalculationID = s.record(ctx, core.CalculationMDE, req, result, start)

	s.logger.Debug("mde %g after %d iterations", result.MinimumDetectableEffect, result.Iterations)
	return &result, nil
}

// PowerCurve evaluates the sample size or the MDE at each power level. Points
// are independent and computed concurrently; the first failure cancels the rest.
func (s *CalculatorService) PowerCurve(ctx context.Context, req experiment.CurveRequest) ([]experiment.CurvePoint, error) {
	start := time.Now()
	if req.Mode == experiment.CurveMDE {
		req.PowerRequest = allocationFor(req.PowerRequest, req.SampleSizes)
	}
	req.PowerRequest = s.withPowerDefaults(req.PowerRequest)
	if len(req.PowerLevels) == 0 {
		req.PowerLevels = experiment.DefaultPowerLevels()
	}

	points, err := s.curve(ctx, req)
	if err != nil {
		s.fail(core.CalculationPowerCurve, start, err)
		return nil, err
	}
	s.record(ctx, core.CalculationPowerCurve, req, points, start)
	return points, nil
}

func (s *CalculatorService) curve(ctx context.Context, req experiment.CurveRequest) ([]experiment.CurvePoint, error) {
	mode, err := experiment.ParseCurveMode(string(req.Mode))
	if err != nil {
		return nil, core.NewValidationError("mode", err.Error())
	}

	points := make([]experiment.CurvePoint, len(req.PowerLevels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.defaults.CurveConcurrency)

	for i, level := range req.PowerLevels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			point := req.PowerRequest
			point.Config.PowerLevel = level

			switch mode {
			case experiment.CurveMDE:
				result, err := s.mde(point, req.SampleSizes)
				if err != nil {
					return fmt.Errorf("power level %g: %w", level, err)
				}
				points[i] = experiment.CurvePoint{PowerLevel: level, MinimumDetectableEffect: result.MinimumDetectableEffect}
			default:
				result, err := s.sampleSize(point)
				if err != nil {
					return fmt.Errorf("power level %g: %w", level, err)
				}
				points[i] = experiment.CurvePoint{PowerLevel: level, TotalSampleSize: result.TotalSampleSize}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// AnalyseSignificance estimates every comparison of an observed experiment at
// the corrected significance level
func (s *CalculatorService) AnalyseSignificance(ctx context.Context, req experiment.SignificanceRequest) (*experiment.SignificanceReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	req = s.withSignificanceDefaults(req)

	report, err := s.significance(req)
	if err != nil {
		s.fail(core.CalculationSignificance, start, err)
		return nil, err
	}
	report.CalculationID = s.record(ctx, core.CalculationSignificance, req, report, start)
	return &report, nil
}

func (s *CalculatorService) significance(req experiment.SignificanceRequest) (experiment.SignificanceReport, error) {
	if err := experiment.ValidateSignificance(req); err != nil {
		return experiment.SignificanceReport{}, err
	}

	exp := req.Experiment
	pairs, err := experiment.Comparisons(req.ComparisonType, len(exp.Groups))
	if err != nil {
		return experiment.SignificanceReport{}, core.NewValidationError("groups", err.Error())
	}
	adj, err := correction.NewPipeline(req.Corrections, req.ComparisonType, len(exp.Groups)).Apply(req.SignificanceLevel)
	if err != nil {
		return experiment.SignificanceReport{}, err
	}
	alpha := adj.Adjusted

	report := experiment.SignificanceReport{
		Outcome:                   exp.Outcome,
		EffectType:                req.EffectType,
		NominalSignificanceLevel:  req.SignificanceLevel,
		AdjustedSignificanceLevel: alpha,
		Groups:                    make([]experiment.GroupEstimate, len(exp.Groups)),
		Comparisons:               make([]experiment.ComparisonResult, 0, len(pairs)),
	}
	for i, g := range exp.Groups {
		report.Groups[i] = s.intervals.GroupEstimate(exp.Outcome, exp.GroupName(i), g, alpha)
	}

	for _, pair := range pairs {
		baselineName, treatmentName := exp.GroupName(pair.Baseline), exp.GroupName(pair.Treatment)
		result, err := s.intervals.Compare(exp.Outcome, req.EffectType, exp.Groups[pair.Baseline], exp.Groups[pair.Treatment], alpha)
		if err != nil {
			return experiment.SignificanceReport{}, fmt.Errorf("%s vs %s: %w", treatmentName, baselineName, err)
		}
		result.Comparison = pair
		result.Name = treatmentName + " vs " + baselineName
		result.BaselineGroup = baselineName
		result.TreatmentGroup = treatmentName
		report.Comparisons = append(report.Comparisons, result)
	}

	return report, nil
}

// TestSampleRatioMismatch checks observed arm sizes against the planned split
func (s *CalculatorService) TestSampleRatioMismatch(ctx context.Context, req experiment.SRMRequest) (*experiment.SRMResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	if len(req.ExpectedProportions) == 0 && len(req.ObservedCounts) > 0 {
		req.ExpectedProportions = experiment.EqualAllocation(len(req.ObservedCounts))
	}
	if req.Threshold == 0 {
		req.Threshold = s.defaults.SRMThreshold
	}

	result, err := s.srm.Test(req.ObservedCounts, req.ExpectedProportions, req.Threshold)
	if err != nil {
		s.fail(core.CalculationSRM, start, err)
		return nil, err
	}
	if result.IsMismatched {
		metrics.MismatchDetected()
		s.logger.Warn("sample ratio mismatch: chi2=%.3f p=%.3g counts=%v", result.ChiSquareStatistic, result.PValue, req.ObservedCounts)
	}
	result.CalculationID = s.record(ctx, core.CalculationSRM, req, result, start)
	return &result, nil
}

// GetCalculation returns a recorded calculation
func (s *CalculatorService) GetCalculation(ctx context.Context, id core.CalculationID) (*models.Calculation, error) {
	if s.ledger == nil {
		return nil, core.ErrLedgerDisabled
	}
	return s.ledger.Get(ctx, id)
}

// ListCalculations returns the most recent recorded calculations
func (s *CalculatorService) ListCalculations(ctx context.Context, kind core.CalculationKind, limit int) ([]*models.Calculation, error) {
	if s.ledger == nil {
		return nil, core.ErrLedgerDisabled
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.ledger.ListRecent(ctx, kind, limit)
}

func (s *CalculatorService) sampleSize(req experiment.PowerRequest) (experiment.SampleSizeResult, error) {
	if err := validatePowerRequest(req, true); err != nil {
		return experiment.SampleSizeResult{}, err
	}
	cfg := req.Config
	alpha, err := correction.Adjust(cfg.SignificanceLevel, req.Corrections, cfg.ComparisonType, cfg.Groups())
	if err != nil {
		return experiment.SampleSizeResult{}, err
	}
	return s.solver.SolveSampleSize(power.SampleSizeInput{
		Outcome:  req.Outcome,
		Baseline: req.Baseline,
		Config:   cfg,
		Alpha:    alpha,
	})
}

func (s *CalculatorService) mde(req experiment.PowerRequest, sizes []int) (experiment.MDEResult, error) {
	cfg := req.Config
	if err := experiment.ValidateSampleSizes(sizes, cfg.Groups()); err != nil {
		return experiment.MDEResult{}, err
	}
	if err := validatePowerRequest(req, false); err != nil {
		return experiment.MDEResult{}, err
	}
	alpha, err := correction.Adjust(cfg.SignificanceLevel, req.Corrections, cfg.ComparisonType, cfg.Groups())
	if err != nil {
		return experiment.MDEResult{}, err
	}
	return s.solver.SolveMDE(power.MDEInput{
		Outcome:     req.Outcome,
		Baseline:    req.Baseline,
		Config:      cfg,
		SampleSizes: sizes,
		Alpha:       alpha,
	})
}

func validatePowerRequest(req experiment.PowerRequest, requireEffect bool) error {
	if err := experiment.ValidateBaseline(req.Outcome, req.Baseline); err != nil {
		return err
	}
	if err := experiment.ValidateTestConfig(req.Config, requireEffect); err != nil {
		return err
	}
	return experiment.ValidateCorrections(req.Corrections)
}

// withPowerDefaults returns a copy of req with zero fields filled in. Two equal
// arms are assumed when no allocation is given.
func (s *CalculatorService) withPowerDefaults(req experiment.PowerRequest) experiment.PowerRequest {
	if req.Config.SignificanceLevel == 0 {
		req.Config.SignificanceLevel = s.defaults.SignificanceLevel
	}
	if req.Config.PowerLevel == 0 {
		req.Config.PowerLevel = s.defaults.PowerLevel
	}
	if req.Config.EffectType == "" {
		req.Config.EffectType = experiment.EffectAbsolute
	}
	if req.Config.ComparisonType == "" {
		req.Config.ComparisonType = experiment.CompareAllVsControl
	}
	if len(req.Config.AllocationRatios) == 0 {
		req.Config.AllocationRatios = experiment.EqualAllocation(2)
	}
	return req
}

// allocationFor derives the allocation from fixed arm sizes when the caller
// gave none.
func allocationFor(req experiment.PowerRequest, sizes []int) experiment.PowerRequest {
	if len(req.Config.AllocationRatios) > 0 || len(sizes) < 2 {
		return req
	}
	total := 0
	for _, n := range sizes {
		total += n
	}
	if total <= 0 {
		req.Config.AllocationRatios = experiment.EqualAllocation(len(sizes))
		return req
	}
	ratios := make([]float64, len(sizes))
	for i, n := range sizes {
		ratios[i] = float64(n) / float64(total)
	}
	req.Config.AllocationRatios = ratios
	return req
}

func (s *CalculatorService) withSignificanceDefaults(req experiment.SignificanceRequest) experiment.SignificanceRequest {
	if req.SignificanceLevel == 0 {
		req.SignificanceLevel = s.defaults.SignificanceLevel
	}
	if req.EffectType == "" {
		req.EffectType = experiment.EffectAbsolute
	}
	if req.ComparisonType == "" {
		req.ComparisonType = experiment.CompareAllVsControl
	}
	return req
}

func (s *CalculatorService) fail(kind core.CalculationKind, start time.Time, err error) {
	code := errors.FromCalculation(err).Code
	metrics.ObserveCalculation(string(kind), code, time.Since(start))
	s.logger.Debug("%s failed (%s): %v", kind, code, err)
}

// record stores a successful calculation and returns its id. Ledger failures
// are logged and never fail the calculation.
func (s *CalculatorService) record(ctx context.Context, kind core.CalculationKind, req, result interface{}, start time.Time) core.CalculationID {
	elapsed := time.Since(start)
	metrics.ObserveCalculation(string(kind), metrics.ResultOK, elapsed)
	if s.ledger == nil {
		return ""
	}

	calc, err := newCalculation(kind, req, result, elapsed)
	if err == nil {
		err = s.ledger.Save(ctx, calc)
	}
	if err != nil {
		metrics.LedgerError()
		s.logger.Warn("failed to record %s calculation: %v", kind, err)
		return ""
	}
	return core.CalculationID(calc.ID.String())
}

func newCalculation(kind core.CalculationKind, req, result interface{}, elapsed time.Duration) (*models.Calculation, error) {
	hash, err := core.ComputeInputHash(req)
	if err != nil {
		return nil, fmt.Errorf("hash request: %w", err)
	}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	id, err := uuid.Parse(core.NewCalculationID().String())
	if err != nil {
		return nil, err
	}

	return &models.Calculation{
		ID:         id,
		Kind:       string(kind),
		InputHash:  hash.String(),
		Request:    reqJSON,
		Result:     resultJSON,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}, nil
}
