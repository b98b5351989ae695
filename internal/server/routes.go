package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// UI routes: the prebuilt bundle under /ui/, with the root redirecting
	// straight into it
	mux.HandleFunc("/", s.app.UIHandler.IndexRedirectHandler)
	mux.Handle("/ui/", s.app.UIHandler.StaticHandler())

	// Query route - the search-and-answer endpoint
	mux.HandleFunc("/query", s.app.QueryHandler.QueryHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
