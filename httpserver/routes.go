package httpserver

import (
	"net/http"
)

// setupRoutes sets up all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// OpenAPI schema
	mux.HandleFunc("GET /openapi.json", s.handleOpenAPISchema)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Server management endpoints
	mux.HandleFunc("GET /api/v1/servers", s.authenticated(s.handleListServers))
	mux.HandleFunc("GET /api/v1/servers/{id}", s.authenticated(s.handleGetServer))
	mux.HandleFunc("POST /api/v1/servers/{id}/{action}", s.authenticated(s.handleServerAction))
}
