package ui

import (
	"net/http"

	"expcalc/internal"
	"expcalc/ports"

	"github.com/gin-gonic/gin"
)

// Server is the JSON API in front of the calculator service
type Server struct {
	router     *gin.Engine
	calculator ports.Calculator
	lookup     ports.CalculationLookup
	logger     *internal.Logger
}

// NewServer creates a new API server. Call gin.SetMode before constructing it.
func NewServer(calculator ports.Calculator, lookup ports.CalculationLookup, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:     gin.New(),
		calculator: calculator,
		lookup:     lookup,
		logger:     logger.With("api"),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		power := api.Group("/power")
		power.POST("/sample-size", s.handleSampleSize)
		power.POST("/mde", s.handleMDE)
		power.POST("/curve", s.handlePowerCurve)

		api.POST("/significance", s.handleSignificance)
		api.POST("/significance/report", s.handleSignificanceReport)
		api.POST("/srm", s.handleSRM)

		api.GET("/calculations", s.handleListCalculations)
		api.GET("/calculations/:id", s.handleGetCalculation)
	}
}

// Handler exposes the router for tests and custom listeners
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	s.logger.Info("listening on http://%s", addr)
	return s.router.Run(addr)
}
