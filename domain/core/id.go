package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// CalculationID identifies one recorded calculator invocation.
type CalculationID ID

func (id CalculationID) String() string { return ID(id).String() }

// NewCalculationID returns a fresh time-ordered calculation identifier.
func NewCalculationID() CalculationID {
	return CalculationID(NewID())
}

// ParseCalculationID parses a string into CalculationID
func ParseCalculationID(s string) (CalculationID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("calculation ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("calculation ID %q is not a UUID: %w", s, err)
	}
	return CalculationID(s), nil
}

// CalculationKind names which calculator produced a recorded result.
type CalculationKind string

const (
	CalculationSampleSize   CalculationKind = "sample_size"
	CalculationMDE          CalculationKind = "minimum_detectable_effect"
	CalculationPowerCurve   CalculationKind = "power_curve"
	CalculationSignificance CalculationKind = "significance"
	CalculationSRM          CalculationKind = "sample_ratio_mismatch"
)
