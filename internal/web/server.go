// Package web is the HTTP boundary for the museum catalog. It extracts
// form fields, hands them to the core as a field bag, and renders the
// discriminated result; no catalog logic lives here.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/northhall/museum/internal/config"
	"github.com/northhall/museum/internal/museum"
	"github.com/northhall/museum/internal/web/middleware"
)

// Server serves the catalog endpoints.
type Server struct {
	service *museum.Service
	router  *chi.Mux
	server  *http.Server
	cfg     config.ServerConfig
}

// NewServer wires routes and middleware around the service.
func NewServer(service *museum.Service, cfg config.ServerConfig) *Server {
	s := &Server{
		service: service,
		router:  chi.NewRouter(),
		cfg:     cfg,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.RequestTimeout))
}

// setupRoutes mirrors the original form surface: one GET per page's
// data, one POST per mutation.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/personnel", s.handlePersonnel)
	s.router.Get("/customers", s.handleCustomers)
	s.router.Get("/choices", s.handleFormChoices)
	s.router.Get("/artpieces/unassigned", s.handleUnassignedArtPieces)

	s.router.Post("/add_ap", s.handleMutation(museum.OpAddArtPiece))
	s.router.Post("/add_exhib", s.handleMutation(museum.OpAddExhibition))
	s.router.Post("/add_dept", s.handleMutation(museum.OpAddDepartment))
	s.router.Post("/add_emp", s.handleMutation(museum.OpAddEmployee))
	s.router.Post("/update_emp", s.handleMutation(museum.OpUpdateEmployee))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening for HTTP requests and blocks until shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
