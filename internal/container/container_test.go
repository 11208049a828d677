package container

import (
	"context"
	"testing"

	"expcalc/domain/experiment"
	"expcalc/internal"
	"expcalc/internal/config"
	"expcalc/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Calculation: config.CalculationConfig{
			SignificanceLevel: 0.01,
			PowerLevel:        0.9,
			SRMThreshold:      0.001,
			CurveConcurrency:  2,
		},
	}
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestContainerWithoutDatabase(t *testing.T) {
	c, err := New(testConfig(), internal.NewLogger(internal.LogLevelError))
	require.NoError(t, err)

	require.NoError(t, c.Connect(context.Background()))
	assert.Nil(t, c.DB)
	assert.Nil(t, c.Lookup())
	require.NotNil(t, c.Calculator)

	// configured defaults reach the calculator
	result, err := c.Calculator.SolveSampleSize(context.Background(), experiment.PowerRequest{
		Outcome:  experiment.OutcomeBinary,
		Baseline: experiment.Baseline{Value: 0.1},
		Config:   experiment.TestConfig{MinimumDetectableEffect: 0.02},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.01, result.AdjustedSignificanceLevel)

	assert.NoError(t, c.Shutdown(context.Background()))
}

func TestInitWithDatabaseRejectsNil(t *testing.T) {
	c, err := New(testConfig(), nil)
	require.NoError(t, err)
	assert.Error(t, c.InitWithDatabase(context.Background(), nil))
}

func TestConnectUnreachableDatabase(t *testing.T) {
	cfg := testConfig()
	// nothing listens on port 1
	cfg.Database.URL = "postgres://expcalc@127.0.0.1:1/expcalc?sslmode=disable&connect_timeout=1"

	c, err := New(cfg, internal.NewLogger(internal.LogLevelError))
	require.NoError(t, err)

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.FromCalculation(err).Code)
	assert.Nil(t, c.DB)
}

func TestDefaults(t *testing.T) {
	d := Defaults(testConfig())
	assert.Equal(t, 0.01, d.SignificanceLevel)
	assert.Equal(t, 0.9, d.PowerLevel)
	assert.Equal(t, 2, d.CurveConcurrency)
}
