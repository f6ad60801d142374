package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/summary", s.handleSummary)
		r.Post("/cache/reload", s.handleCacheReload)

		// Device endpoints
		r.Get("/devices", s.handleListDevices)

		// Switch endpoints
		r.Route("/switches", func(r chi.Router) {
			r.Get("/", s.handleListSwitches)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSwitch)
				r.Get("/events", s.handleSwitchEvents)
				r.Post("/buttons/{button}", s.handleProgramButton)
			})
		})

		// Room and scene views
		r.Get("/rooms", s.handleListRooms)
		r.Get("/scenes", s.handleListScenes)

		// Snapshot endpoints
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", s.handleListSnapshots)
			r.Post("/", s.handleCaptureSnapshot)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSnapshot)
				r.Get("/diff", s.handleDiffSnapshot)
				r.Post("/restore", s.handleRestoreSnapshot)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
