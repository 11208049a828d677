package ui

import (
	"time"

	"expcalc/internal/errors"

	"github.com/gin-gonic/gin"
)

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(s.recovery())
	s.router.Use(s.requestLogger())
}

// requestLogger logs one line per request at debug level, and failures at warn
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		if status >= 500 {
			s.logger.Warn("%s %s -> %d in %s", c.Request.Method, c.FullPath(), status, elapsed)
			return
		}
		s.logger.Debug("%s %s -> %d in %s", c.Request.Method, c.FullPath(), status, elapsed)
	}
}

// recovery turns panics into the standard error body
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.logger.Error("panic serving %s: %v", c.Request.URL.Path, recovered)
		s.writeError(c, errors.InternalError("internal server error"))
	})
}
