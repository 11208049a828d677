package ui

import (
	"net/http"
	"strconv"

	"expcalc/adapters/report"
	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/internal/errors"

	"github.com/gin-gonic/gin"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(c *gin.Context, err error) {
	appErr := errors.FromCalculation(err)
	status := errors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: appErr.Code, Message: appErr.Message})
}

// bind decodes the JSON body, answering 400 on failure
func (s *Server) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.writeError(c, errors.InvalidInput("invalid JSON body: "+err.Error()))
		return false
	}
	return true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ledger": s.lookup != nil})
}

func (s *Server) handleSampleSize(c *gin.Context) {
	var req experiment.PowerRequest
	if !s.bind(c, &req) {
		return
	}
	result, err := s.calculator.SolveSampleSize(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMDE(c *gin.Context) {
	var req experiment.MDERequest
	if !s.bind(c, &req) {
		return
	}
	result, err := s.calculator.SolveMinimumDetectableEffect(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePowerCurve(c *gin.Context) {
	var req experiment.CurveRequest
	if !s.bind(c, &req) {
		return
	}
	points, err := s.calculator.PowerCurve(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	mode, _ := experiment.ParseCurveMode(string(req.Mode))
	c.JSON(http.StatusOK, gin.H{"mode": mode, "points": points})
}

func (s *Server) handleSignificance(c *gin.Context) {
	var req experiment.SignificanceRequest
	if !s.bind(c, &req) {
		return
	}
	result, err := s.calculator.AnalyseSignificance(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// reportRequest is a significance request plus presentation options.
// ExpectedProportions feeds the sample ratio check; empty means equal split.
type reportRequest struct {
	experiment.SignificanceRequest
	Title               string    `json:"title"`
	ExpectedProportions []float64 `json:"expected_proportions,omitempty"`
}

// handleSignificanceReport renders the analysis as an HTML page. The sample
// ratio section is omitted when the check itself cannot run.
func (s *Server) handleSignificanceReport(c *gin.Context) {
	var req reportRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Title == "" {
		req.Title = "Experiment results"
	}

	ctx := c.Request.Context()
	result, err := s.calculator.AnalyseSignificance(ctx, req.SignificanceRequest)
	if err != nil {
		s.writeError(c, err)
		return
	}

	counts := make([]int, len(req.Experiment.Groups))
	for i, g := range req.Experiment.Groups {
		counts[i] = g.SampleSize
	}
	srm, err := s.calculator.TestSampleRatioMismatch(ctx, experiment.SRMRequest{
		ObservedCounts:      counts,
		ExpectedProportions: req.ExpectedProportions,
	})
	if err != nil {
		s.logger.Debug("report without sample ratio check: %v", err)
		srm = nil
	}

	md := report.SignificanceMarkdown(req.Title, *result, srm)
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.ToHTML(req.Title, md))
}

func (s *Server) handleSRM(c *gin.Context) {
	var req experiment.SRMRequest
	if !s.bind(c, &req) {
		return
	}
	result, err := s.calculator.TestSampleRatioMismatch(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetCalculation(c *gin.Context) {
	if s.lookup == nil {
		s.writeError(c, core.ErrLedgerDisabled)
		return
	}
	id, err := core.ParseCalculationID(c.Param("id"))
	if err != nil {
		s.writeError(c, errors.InvalidInput(err.Error()))
		return
	}
	calc, err := s.lookup.GetCalculation(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, calc)
}

func (s *Server) handleListCalculations(c *gin.Context) {
	if s.lookup == nil {
		s.writeError(c, core.ErrLedgerDisabled)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(c, errors.InvalidInput("limit must be an integer"))
			return
		}
		limit = n
	}
	calcs, err := s.lookup.ListCalculations(c.Request.Context(), core.CalculationKind(c.Query("kind")), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calculations": calcs})
}
