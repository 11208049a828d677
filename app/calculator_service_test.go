package app

import (
	"context"
	"fmt"
	"testing"

	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/internal"
	"expcalc/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCalculationRepository records ledger calls
type MockCalculationRepository struct {
	mock.Mock
	saved []*models.Calculation
}

func (m *MockCalculationRepository) Save(ctx context.Context, calc *models.Calculation) error {
	args := m.Called(ctx, calc)
	m.saved = append(m.saved, calc)
	return args.Error(0)
}

func (m *MockCalculationRepository) Get(ctx context.Context, id core.CalculationID) (*models.Calculation, error) {
	args := m.Called(ctx, id)
	if calc, ok := args.Get(0).(*models.Calculation); ok {
		return calc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCalculationRepository) ListRecent(ctx context.Context, kind core.CalculationKind, limit int) ([]*models.Calculation, error) {
	args := m.Called(ctx, kind, limit)
	return args.Get(0).([]*models.Calculation), args.Error(1)
}

func newTestService(ledger *MockCalculationRepository) *CalculatorService {
	logger := internal.NewLogger(internal.LogLevelError)
	if ledger == nil {
		return NewCalculatorService(nil, DefaultDefaults(), logger)
	}
	return NewCalculatorService(ledger, DefaultDefaults(), logger)
}

func binaryPowerRequest() experiment.PowerRequest {
	return experiment.PowerRequest{
		Outcome:  experiment.OutcomeBinary,
		Baseline: experiment.Baseline{Value: 0.10},
		Config: experiment.TestConfig{
			MinimumDetectableEffect: 0.02,
		},
	}
}

func TestSolveSampleSizeAppliesDefaults(t *testing.T) {
	svc := newTestService(nil)

	result, err := svc.SolveSampleSize(context.Background(), binaryPowerRequest())
	require.NoError(t, err)

	require.Len(t, result.SampleSizePerGroup, 2)
	assert.InDelta(t, 3842, result.SampleSizePerGroup[0].SampleSize, 2)
	assert.Equal(t, result.SampleSizePerGroup[0].SampleSize, result.SampleSizePerGroup[1].SampleSize)
	assert.Equal(t, 0.05, result.AdjustedSignificanceLevel)
	assert.Empty(t, result.CalculationID)
}

func TestSolveSampleSizeRecordsCalculation(t *testing.T) {
	ledger := new(MockCalculationRepository)
	ledger.On("Save", mock.Anything, mock.MatchedBy(func(c *models.Calculation) bool {
		return c.Kind == string(core.CalculationSampleSize) && c.InputHash != "" && len(c.Result) > 0
	})).Return(nil)
	svc := newTestService(ledger)

	result, err := svc.SolveSampleSize(context.Background(), binaryPowerRequest())
	require.NoError(t, err)

	ledger.AssertExpectations(t)
	require.Len(t, ledger.saved, 1)
	assert.Equal(t, ledger.saved[0].ID.String(), result.CalculationID.String())

	again, err := svc.SolveSampleSize(context.Background(), binaryPowerRequest())
	require.NoError(t, err)
	require.Len(t, ledger.saved, 2)
	assert.Equal(t, ledger.saved[0].InputHash, ledger.saved[1].InputHash)
	assert.NotEqual(t, result.CalculationID, again.CalculationID)
}

func TestLedgerFailureDoesNotFailCalculation(t *testing.T) {
	ledger := new(MockCalculationRepository)
	ledger.On("Save", mock.Anything, mock.Anything).Return(fmt.Errorf("connection refused"))
	svc := newTestService(ledger)

	result, err := svc.SolveSampleSize(context.Background(), binaryPowerRequest())
	require.NoError(t, err)
	assert.Empty(t, result.CalculationID)
	assert.Positive(t, result.TotalSampleSize)
}

func TestSolveSampleSizeCorrections(t *testing.T) {
	svc := newTestService(nil)

	req := binaryPowerRequest()
	req.Config.AllocationRatios = experiment.EqualAllocation(3)
	req.Corrections.MultipleComparisons = &experiment.MultipleComparisons{}

	bonferroni, err := svc.SolveSampleSize(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 0.025, bonferroni.AdjustedSignificanceLevel, 1e-15)

	req.Corrections.SequentialTesting = &experiment.SequentialTesting{InformationFraction: 0.5}
	sequential, err := svc.SolveSampleSize(context.Background(), req)
	require.NoError(t, err)
	assert.Less(t, sequential.AdjustedSignificanceLevel, bonferroni.AdjustedSignificanceLevel)
	assert.Greater(t, sequential.TotalSampleSize, bonferroni.TotalSampleSize)
}

func TestSolveSampleSizeRejectsInvalidInput(t *testing.T) {
	ledger := new(MockCalculationRepository)
	svc := newTestService(ledger)

	tests := []struct {
		name   string
		mutate func(*experiment.PowerRequest)
		check  func(error) bool
	}{
		{"power out of range", func(r *experiment.PowerRequest) { r.Config.PowerLevel = 1.5 }, core.IsValidationError},
		{"zero effect", func(r *experiment.PowerRequest) { r.Config.MinimumDetectableEffect = 0 }, core.IsValidationError},
		{"allocation off", func(r *experiment.PowerRequest) { r.Config.AllocationRatios = []float64{0.5, 0.4} }, core.IsValidationError},
		{"baseline zero", func(r *experiment.PowerRequest) { r.Baseline.Value = 0 }, core.IsDomainError},
		{"target above one", func(r *experiment.PowerRequest) { r.Config.MinimumDetectableEffect = 0.95 }, core.IsDomainError},
		{"bad information fraction", func(r *experiment.PowerRequest) {
			r.Corrections.SequentialTesting = &experiment.SequentialTesting{InformationFraction: 1.5}
		}, core.IsDomainError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := binaryPowerRequest()
			tt.mutate(&req)

			_, err := svc.SolveSampleSize(context.Background(), req)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
		})
	}
	ledger.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSolveMDEDerivesAllocationFromSizes(t *testing.T) {
	svc := newTestService(nil)

	req := experiment.MDERequest{PowerRequest: binaryPowerRequest(), SampleSizes: []int{3842, 3842}}
	result, err := svc.SolveMinimumDetectableEffect(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, result.MinimumDetectableEffect, 0.0002)

	req.SampleSizes = []int{3000, 3000, 3000}
	multi, err := svc.SolveMinimumDetectableEffect(context.Background(), req)
	require.NoError(t, err)
	assert.Greater(t, multi.MinimumDetectableEffect, result.MinimumDetectableEffect)
}

func TestSolveMDERejectsMismatchedSizes(t *testing.T) {
	svc := newTestService(nil)

	req := experiment.MDERequest{PowerRequest: binaryPowerRequest(), SampleSizes: []int{1000, 1000, 1000}}
	req.Config.AllocationRatios = []float64{0.5, 0.5}

	_, err := svc.SolveMinimumDetectableEffect(context.Background(), req)
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))
}

func TestSolveMDERejectsSingleUnitArms(t *testing.T) {
	svc := newTestService(nil)

	req := experiment.MDERequest{PowerRequest: binaryPowerRequest(), SampleSizes: []int{1, 1}}
	_, err := svc.SolveMinimumDetectableEffect(context.Background(), req)
	assert.True(t, core.IsValidationError(err), "got %v", err)
}

func TestPowerCurve(t *testing.T) {
	svc := newTestService(nil)
	levels := []float64{0.5, 0.6, 0.7, 0.8, 0.9}

	t.Run("sample size", func(t *testing.T) {
		req := experiment.CurveRequest{PowerRequest: binaryPowerRequest(), PowerLevels: levels}
		points, err := svc.PowerCurve(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, points, len(levels))

		for i, p := range points {
			assert.Equal(t, levels[i], p.PowerLevel)
			if i > 0 {
				assert.Greater(t, p.TotalSampleSize, points[i-1].TotalSampleSize)
			}
		}
	})

	t.Run("mde", func(t *testing.T) {
		req := experiment.CurveRequest{
			PowerRequest: binaryPowerRequest(),
			Mode:         experiment.CurveMDE,
			PowerLevels:  levels,
			SampleSizes:  []int{5000, 5000},
		}
		points, err := svc.PowerCurve(context.Background(), req)
		require.NoError(t, err)

		for i := 1; i < len(points); i++ {
			assert.Greater(t, points[i].MinimumDetectableEffect, points[i-1].MinimumDetectableEffect)
		}
	})

	t.Run("default levels", func(t *testing.T) {
		points, err := svc.PowerCurve(context.Background(), experiment.CurveRequest{PowerRequest: binaryPowerRequest()})
		require.NoError(t, err)
		assert.Len(t, points, 90)
	})

	t.Run("failure", func(t *testing.T) {
		req := experiment.CurveRequest{PowerRequest: binaryPowerRequest(), PowerLevels: []float64{0.8, 1.2}}
		_, err := svc.PowerCurve(context.Background(), req)
		require.Error(t, err)
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("unknown mode", func(t *testing.T) {
		req := experiment.CurveRequest{PowerRequest: binaryPowerRequest(), Mode: "power"}
		_, err := svc.PowerCurve(context.Background(), req)
		assert.True(t, core.IsValidationError(err))
	})
}

func threeArmExperiment() experiment.ExperimentSummary {
	return experiment.ExperimentSummary{
		Outcome: experiment.OutcomeBinary,
		Groups: []experiment.GroupSummary{
			{Name: "control", SampleSize: 10000, SuccessCount: 1000},
			{Name: "green", SampleSize: 10000, SuccessCount: 1150},
			{SampleSize: 10000, SuccessCount: 1010},
		},
	}
}

func TestAnalyseSignificance(t *testing.T) {
	svc := newTestService(nil)

	report, err := svc.AnalyseSignificance(context.Background(), experiment.SignificanceRequest{
		Experiment:  threeArmExperiment(),
		Corrections: experiment.CorrectionConfig{MultipleComparisons: &experiment.MultipleComparisons{}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.05, report.NominalSignificanceLevel)
	assert.InDelta(t, 0.025, report.AdjustedSignificanceLevel, 1e-15)
	require.Len(t, report.Groups, 3)
	assert.Equal(t, "variant_2", report.Groups[2].Group)

	require.Len(t, report.Comparisons, 2)
	green := report.Comparisons[0]
	assert.Equal(t, "green vs control", green.Name)
	assert.Equal(t, experiment.Comparison{Baseline: 0, Treatment: 1}, green.Comparison)
	assert.InDelta(t, 0.015, green.Effect, 1e-12)
	assert.True(t, green.IsSignificant)
	assert.Equal(t, report.AdjustedSignificanceLevel, green.AdjustedSignificanceLevel)

	assert.False(t, report.Comparisons[1].IsSignificant)
}

func TestAnalyseSignificancePairwise(t *testing.T) {
	svc := newTestService(nil)

	report, err := svc.AnalyseSignificance(context.Background(), experiment.SignificanceRequest{
		Experiment:     threeArmExperiment(),
		ComparisonType: experiment.CompareAllPairwise,
		EffectType:     experiment.EffectRelative,
		Corrections:    experiment.CorrectionConfig{MultipleComparisons: &experiment.MultipleComparisons{}},
	})
	require.NoError(t, err)

	require.Len(t, report.Comparisons, 3)
	assert.InDelta(t, 0.05/3, report.AdjustedSignificanceLevel, 1e-15)
	assert.Equal(t, "variant_2 vs green", report.Comparisons[2].Name)
	assert.InDelta(t, 0.15, report.Comparisons[0].Effect, 1e-12)
}

func TestAnalyseSignificanceErrors(t *testing.T) {
	svc := newTestService(nil)

	degenerate := experiment.ExperimentSummary{
		Outcome: experiment.OutcomeBinary,
		Groups: []experiment.GroupSummary{
			{Name: "control", SampleSize: 100},
			{Name: "variant", SampleSize: 100},
		},
	}
	_, err := svc.AnalyseSignificance(context.Background(), experiment.SignificanceRequest{Experiment: degenerate})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrZeroVariance)
	assert.Contains(t, err.Error(), "variant vs control")

	single := experiment.ExperimentSummary{
		Outcome: experiment.OutcomeBinary,
		Groups:  []experiment.GroupSummary{{SampleSize: 100, SuccessCount: 5}},
	}
	_, err = svc.AnalyseSignificance(context.Background(), experiment.SignificanceRequest{Experiment: single})
	assert.True(t, core.IsValidationError(err))
}

func TestTestSampleRatioMismatch(t *testing.T) {
	svc := newTestService(nil)

	balanced, err := svc.TestSampleRatioMismatch(context.Background(), experiment.SRMRequest{ObservedCounts: []int{5000, 5000}})
	require.NoError(t, err)
	assert.False(t, balanced.IsMismatched)
	assert.Equal(t, 0.001, balanced.Threshold)

	skewed, err := svc.TestSampleRatioMismatch(context.Background(), experiment.SRMRequest{
		ObservedCounts:      []int{5500, 4500},
		ExpectedProportions: []float64{0.5, 0.5},
	})
	require.NoError(t, err)
	assert.True(t, skewed.IsMismatched)

	_, err = svc.TestSampleRatioMismatch(context.Background(), experiment.SRMRequest{ObservedCounts: []int{0, 0}})
	assert.ErrorIs(t, err, core.ErrNoObservations)
}

func TestCalculationLookup(t *testing.T) {
	ctx := context.Background()

	_, err := newTestService(nil).GetCalculation(ctx, core.NewCalculationID())
	assert.ErrorIs(t, err, core.ErrLedgerDisabled)
	assert.True(t, core.IsNotFoundError(err))

	ledger := new(MockCalculationRepository)
	id := core.NewCalculationID()
	stored := &models.Calculation{Kind: string(core.CalculationSRM)}
	ledger.On("Get", ctx, id).Return(stored, nil)
	ledger.On("ListRecent", ctx, core.CalculationSRM, 50).Return([]*models.Calculation{stored}, nil)
	svc := newTestService(ledger)

	got, err := svc.GetCalculation(ctx, id)
	require.NoError(t, err)
	assert.Same(t, stored, got)

	list, err := svc.ListCalculations(ctx, core.CalculationSRM, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	ledger.AssertExpectations(t)
}

func TestCancelledContext(t *testing.T) {
	svc := newTestService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.SolveSampleSize(ctx, binaryPowerRequest())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.PowerCurve(ctx, experiment.CurveRequest{PowerRequest: binaryPowerRequest()})
	assert.ErrorIs(t, err, context.Canceled)
}
