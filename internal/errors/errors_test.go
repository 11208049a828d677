package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expcalc/domain/core"
)

func TestFromCalculation(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", core.NewValidationError("power_level", "must be in (0,1)"), CodeValidationError, http.StatusBadRequest},
		{"domain", core.ErrZeroVariance, CodeDomainError, http.StatusUnprocessableEntity},
		{"wrapped domain", fmt.Errorf("comparison 0 vs 1: %w", core.ErrZeroBaseline), CodeDomainError, http.StatusUnprocessableEntity},
		{"convergence", core.NewConvergenceError(200, 0, 1), CodeConvergenceError, http.StatusUnprocessableEntity},
		{"not found", core.NewNotFoundError("calculation", "abc"), CodeNotFound, http.StatusNotFound},
		{"other", fmt.Errorf("boom"), CodeInternalError, http.StatusInternalServerError},
		{"app error", InvalidInput("bad json"), CodeInvalidInput, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromCalculation(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, HTTPStatus(appErr.Code))
			assert.ErrorIs(t, appErr, tt.err)
		})
	}

	assert.Nil(t, FromCalculation(nil))
}

func TestWrapKeepsCode(t *testing.T) {
	err := Wrap(DatabaseError(fmt.Errorf("connection refused"), "insert failed"), "failed to save calculation")

	appErr := FromCalculation(err)
	assert.Equal(t, CodeDatabaseError, appErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(appErr.Code))
	assert.Equal(t, "failed to save calculation: insert failed: connection refused", err.Error())
	assert.ErrorContains(t, err, "connection refused")
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWrapUncodedIsInternal(t *testing.T) {
	err := Wrapf(fmt.Errorf("plain"), "step %d", 2)
	assert.Equal(t, CodeInternalError, FromCalculation(err).Code)
	assert.Equal(t, "step 2: plain", err.Error())
}
