package api

import (
	"net/http"
	"time"
)

// handleSummary returns fleet counts and cache freshness.
//
// GET /api/v1/summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.inventory.Summary(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	reloadedAt := s.cache.ReloadedAt()
	var reloaded string
	if !reloadedAt.IsZero() {
		reloaded = reloadedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version":     s.version,
		"summary":     summary,
		"reloaded_at": reloaded,
	})
}

// handleCacheReload forces a full refresh of the local mirror.
//
// POST /api/v1/cache/reload
func (s *Server) handleCacheReload(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Reload(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded": true,
		"counts":   s.cache.Counts(),
	})
}
