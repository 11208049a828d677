package ui

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminApp serves operational endpoints on a separate listener
type AdminApp struct {
	router *chi.Mux
}

// NewAdminApp creates the metrics and profiling mux
func NewAdminApp() *AdminApp {
	app := &AdminApp{router: chi.NewRouter()}
	app.setupMiddleware()
	app.setupRoutes()
	return app
}

// setupMiddleware configures HTTP middleware
func (a *AdminApp) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Recoverer)
}

// setupRoutes configures the admin routes
func (a *AdminApp) setupRoutes() {
	a.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	a.router.Handle("/metrics", promhttp.Handler())
	a.router.Mount("/debug", middleware.Profiler())
}

// Handler exposes the router
func (a *AdminApp) Handler() http.Handler {
	return a.router
}

// Start starts the admin server
func (a *AdminApp) Start(addr string) error {
	return http.ListenAndServe(addr, a.router)
}
