package ports

import (
	"context"

	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/models"
)

// Calculator is the set of operations exposed to the outer surfaces
type Calculator interface {
	SolveSampleSize(ctx context.Context, req experiment.PowerRequest) (*experiment.SampleSizeResult, error)
	SolveMinimumDetectableEffect(ctx context.Context, req experiment.MDERequest) (*experiment.MDEResult, error)
	PowerCurve(ctx context.Context, req experiment.CurveRequest) ([]experiment.CurvePoint, error)
	AnalyseSignificance(ctx context.Context, req experiment.SignificanceRequest) (*experiment.SignificanceReport, error)
	TestSampleRatioMismatch(ctx context.Context, req experiment.SRMRequest) (*experiment.SRMResult, error)
}

// CalculationLookup reads back recorded calculations
type CalculationLookup interface {
	GetCalculation(ctx context.Context, id core.CalculationID) (*models.Calculation, error)
	ListCalculations(ctx context.Context, kind core.CalculationKind, limit int) ([]*models.Calculation, error)
}
