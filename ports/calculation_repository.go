package ports

import (
	"context"

	"expcalc/domain/core"
	"expcalc/models"
)

// CalculationRepository defines the interface for the calculation ledger
type CalculationRepository interface {
	// Record a completed calculation
	Save(ctx context.Context, calc *models.Calculation) error

	// Get a calculation by id
	Get(ctx context.Context, id core.CalculationID) (*models.Calculation, error)

	// List the most recent calculations, optionally of one kind
	ListRecent(ctx context.Context, kind core.CalculationKind, limit int) ([]*models.Calculation, error)
}
