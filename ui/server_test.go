package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"expcalc/app"
	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/internal"
	"expcalc/internal/errors"
	"expcalc/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockCalculationLookup stubs the ledger read side
type MockCalculationLookup struct {
	mock.Mock
}

func (m *MockCalculationLookup) GetCalculation(ctx context.Context, id core.CalculationID) (*models.Calculation, error) {
	args := m.Called(ctx, id)
	if calc, ok := args.Get(0).(*models.Calculation); ok {
		return calc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCalculationLookup) ListCalculations(ctx context.Context, kind core.CalculationKind, limit int) ([]*models.Calculation, error) {
	args := m.Called(ctx, kind, limit)
	return args.Get(0).([]*models.Calculation), args.Error(1)
}

func newTestServer(lookup *MockCalculationLookup) *Server {
	logger := internal.NewLogger(internal.LogLevelError)
	svc := app.NewCalculatorService(nil, app.DefaultDefaults(), logger)
	if lookup == nil {
		return NewServer(svc, nil, logger)
	}
	return NewServer(svc, lookup, logger)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","ledger":false}`, rec.Body.String())
}

func TestSampleSizeEndpoint(t *testing.T) {
	s := newTestServer(nil)

	rec := do(t, s, http.MethodPost, "/api/v1/power/sample-size", `{
		"outcome": "binary",
		"baseline": {"value": 0.10},
		"config": {
			"significance_level": 0.05,
			"power_level": 0.8,
			"effect_type": "absolute",
			"minimum_detectable_effect": 0.02,
			"allocation_ratios": [0.5, 0.5]
		}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result experiment.SampleSizeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.InDelta(t, 7684, result.TotalSampleSize, 4)
	assert.Equal(t, "control", result.SampleSizePerGroup[0].Group)
}

func TestSampleSizeEndpointAcceptsNormalAlias(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodPost, "/api/v1/power/sample-size", `{
		"outcome": "normal",
		"baseline": {"value": 100, "std_dev": 50},
		"config": {"effect_type": "relative", "minimum_detectable_effect": 0.05}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result experiment.SampleSizeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.InDelta(t, 1571, result.SampleSizePerGroup[0].SampleSize, 2)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(nil)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed json", "/api/v1/power/sample-size", `{"outcome":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown outcome", "/api/v1/power/sample-size", `{"outcome":"ordinal"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"power out of range", "/api/v1/power/sample-size",
			`{"outcome":"binary","baseline":{"value":0.1},"config":{"power_level":1.5,"minimum_detectable_effect":0.02}}`,
			http.StatusBadRequest, "VALIDATION_ERROR"},
		{"zero baseline", "/api/v1/power/sample-size",
			`{"outcome":"binary","baseline":{"value":0},"config":{"minimum_detectable_effect":0.02}}`,
			http.StatusUnprocessableEntity, "DOMAIN_ERROR"},
		{"mde cannot bracket", "/api/v1/power/mde",
			`{"outcome":"binary","baseline":{"value":0.9},"config":{"power_level":0.99},"sample_sizes":[3,3]}`,
			http.StatusUnprocessableEntity, "CONVERGENCE_ERROR"},
		{"zero variance", "/api/v1/significance",
			`{"experiment":{"outcome":"binary","groups":[{"sample_size":100},{"sample_size":100}]}}`,
			http.StatusUnprocessableEntity, "DOMAIN_ERROR"},
		{"srm single group", "/api/v1/srm", `{"observed_counts":[10]}`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestPowerCurveEndpoint(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodPost, "/api/v1/power/curve", `{
		"outcome": "binary",
		"baseline": {"value": 0.10},
		"config": {"minimum_detectable_effect": 0.02},
		"power_levels": [0.5, 0.8, 0.95]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Mode   experiment.CurveMode      `json:"mode"`
		Points []experiment.CurvePoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, experiment.CurveSampleSize, body.Mode)
	require.Len(t, body.Points, 3)
	assert.Less(t, body.Points[0].TotalSampleSize, body.Points[2].TotalSampleSize)
}

const significanceBody = `{
	"experiment": {
		"outcome": "binary",
		"groups": [
			{"name": "control", "sample_size": 10000, "success_count": 1000},
			{"name": "variant", "sample_size": 10000, "success_count": 1150}
		]
	},
	"significance_level": 0.05
}`

func TestSignificanceEndpoint(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodPost, "/api/v1/significance", significanceBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report experiment.SignificanceReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Comparisons, 1)
	assert.Equal(t, "variant vs control", report.Comparisons[0].Name)
	assert.True(t, report.Comparisons[0].IsSignificant)
}

func TestSignificanceReportEndpoint(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodPost, "/api/v1/significance/report", significanceBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	page := rec.Body.String()
	assert.Contains(t, page, "<title>Experiment results</title>")
	assert.Contains(t, page, "No sample ratio mismatch")
	assert.Contains(t, page, "<table>")
}

func TestSRMEndpoint(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodPost, "/api/v1/srm", `{"observed_counts":[5500,4500],"expected_proportions":[0.5,0.5]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result experiment.SRMResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsMismatched)
	assert.InDelta(t, 100, result.ChiSquareStatistic, 1e-9)
}

func TestCalculationEndpoints(t *testing.T) {
	t.Run("ledger disabled", func(t *testing.T) {
		rec := do(t, newTestServer(nil), http.MethodGet, "/api/v1/calculations/0190b6a4-3c1e-7cc0-8f4b-6a7d1e2f3a4b", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
	})

	t.Run("found", func(t *testing.T) {
		lookup := new(MockCalculationLookup)
		id := core.CalculationID("0190b6a4-3c1e-7cc0-8f4b-6a7d1e2f3a4b")
		lookup.On("GetCalculation", mock.Anything, id).Return(&models.Calculation{Kind: "srm", Result: []byte(`{"is_mismatched":true}`)}, nil)

		rec := do(t, newTestServer(lookup), http.MethodGet, "/api/v1/calculations/"+id.String(), "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"result":{"is_mismatched":true}`)
		lookup.AssertExpectations(t)
	})

	t.Run("missing", func(t *testing.T) {
		lookup := new(MockCalculationLookup)
		lookup.On("GetCalculation", mock.Anything, mock.Anything).Return(nil, core.ErrCalculationNotFound)

		rec := do(t, newTestServer(lookup), http.MethodGet, "/api/v1/calculations/0190b6a4-3c1e-7cc0-8f4b-6a7d1e2f3a4b", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		lookup := new(MockCalculationLookup)
		lookup.On("GetCalculation", mock.Anything, mock.Anything).Return(nil, errors.DatabaseError(context.DeadlineExceeded, "failed to get calculation"))

		rec := do(t, newTestServer(lookup), http.MethodGet, "/api/v1/calculations/0190b6a4-3c1e-7cc0-8f4b-6a7d1e2f3a4b", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, errors.CodeDatabaseError, decodeError(t, rec).Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := do(t, newTestServer(new(MockCalculationLookup)), http.MethodGet, "/api/v1/calculations/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		lookup := new(MockCalculationLookup)
		lookup.On("ListCalculations", mock.Anything, core.CalculationSignificance, 5).Return([]*models.Calculation{{Kind: "significance"}}, nil)

		rec := do(t, newTestServer(lookup), http.MethodGet, "/api/v1/calculations?kind=significance&limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"kind":"significance"`)
	})
}

func TestAdminApp(t *testing.T) {
	admin := NewAdminApp()

	for _, path := range []string{"/healthz", "/metrics", "/debug/pprof/"} {
		rec := httptest.NewRecorder()
		admin.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
