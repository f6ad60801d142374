package api

import "net/http"

// handleListRooms returns all rooms and zones.
//
// GET /api/v1/rooms
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.inventory.Rooms(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// handleListScenes returns all scenes with the buttons programmed to
// recall them.
//
// GET /api/v1/scenes
func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := s.inventory.Scenes(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scenes": scenes,
		"count":  len(scenes),
	})
}
