package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// Calculation is one recorded calculator invocation
type Calculation struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	Kind       string         `json:"kind" db:"kind"`             // 'sample_size', 'significance', etc.
	InputHash  string         `json:"input_hash" db:"input_hash"` // sha256 of the request JSON
	Request    types.JSONText `json:"request" db:"request"`
	Result     types.JSONText `json:"result" db:"result"`
	DurationMs int64          `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}
