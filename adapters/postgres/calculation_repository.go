package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"expcalc/domain/core"
	apperrors "expcalc/internal/errors"
	"expcalc/models"
	"expcalc/ports"

	"github.com/jmoiron/sqlx"
)

// CalculationRepositoryImpl implements CalculationRepository for PostgreSQL
type CalculationRepositoryImpl struct {
	db *sqlx.DB
}

// NewCalculationRepository creates a new PostgreSQL calculation ledger
func NewCalculationRepository(db *sqlx.DB) ports.CalculationRepository {
	return &CalculationRepositoryImpl{db: db}
}

// Save records a completed calculation
func (r *CalculationRepositoryImpl) Save(ctx context.Context, calc *models.Calculation) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO calculations (
			id, kind, input_hash, request, result, duration_ms, created_at
		) VALUES (
			:id, :kind, :input_hash, :request, :result, :duration_ms, :created_at
		)
	`, calc)
	if err != nil {
		return apperrors.DatabaseError(err, "failed to save calculation")
	}
	return nil
}

// Get retrieves a calculation by id
func (r *CalculationRepositoryImpl) Get(ctx context.Context, id core.CalculationID) (*models.Calculation, error) {
	var calc models.Calculation
	err := r.db.GetContext(ctx, &calc, `
		SELECT id, kind, input_hash, request, result, duration_ms, created_at
		FROM calculations
		WHERE id = $1
	`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w %s", core.ErrCalculationNotFound, id)
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err, fmt.Sprintf("failed to get calculation %s", id))
	}
	return &calc, nil
}

// ListRecent returns the newest calculations, filtered by kind when given
func (r *CalculationRepositoryImpl) ListRecent(ctx context.Context, kind core.CalculationKind, limit int) ([]*models.Calculation, error) {
	var calcs []*models.Calculation
	err := r.db.SelectContext(ctx, &calcs, `
		SELECT id, kind, input_hash, request, result, duration_ms, created_at
		FROM calculations
		WHERE $1::text = '' OR kind = $1::text
		ORDER BY created_at DESC
		LIMIT $2
	`, string(kind), limit)
	if err != nil {
		return nil, apperrors.DatabaseError(err, "failed to list calculations")
	}
	return calcs, nil
}
