package core

import (
	"errors"
	"fmt"
)

// Calculation errors - centralized error definitions
var (
	// ErrValidation marks structurally invalid input rejected before any calculation runs.
	ErrValidation = errors.New("invalid input")

	// ErrDomain marks a mathematically undefined or degenerate calculation.
	ErrDomain = errors.New("undefined calculation")

	// ErrConvergence marks a root-finder that could not bracket a solution.
	ErrConvergence = errors.New("no convergence")

	// Not found errors
	ErrNotFound            = errors.New("resource not found")
	ErrCalculationNotFound = fmt.Errorf("%w: calculation", ErrNotFound)
	ErrLedgerDisabled      = fmt.Errorf("%w: calculation ledger is disabled", ErrNotFound)

	// Specific domain failures
	ErrZeroVariance        = fmt.Errorf("%w: zero variance", ErrDomain)
	ErrTargetOutOfRange    = fmt.Errorf("%w: target proportion outside (0,1)", ErrDomain)
	ErrZeroBaseline        = fmt.Errorf("%w: relative effect against a zero baseline", ErrDomain)
	ErrZeroExpectedCount   = fmt.Errorf("%w: zero expected count with observed traffic", ErrDomain)
	ErrNoObservations      = fmt.Errorf("%w: no observations", ErrDomain)
	ErrInformationFraction = fmt.Errorf("%w: information fraction outside (0,1]", ErrDomain)
	ErrTooFewUnits         = fmt.Errorf("%w: fewer than 2 units in an arm leaves no variance estimate", ErrDomain)
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}

func NewDomainError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDomain, fmt.Sprintf(format, args...))
}

func NewConvergenceError(iterations int, lo, hi float64) error {
	return fmt.Errorf("%w: no sign change after %d iterations on [%g, %g]", ErrConvergence, iterations, lo, hi)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsDomainError(err error) bool {
	return errors.Is(err, ErrDomain)
}

func IsConvergenceError(err error) bool {
	return errors.Is(err, ErrConvergence)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
