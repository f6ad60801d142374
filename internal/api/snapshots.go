package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/huelogic/internal/match"
	"github.com/nerrad567/huelogic/internal/snapshot"
)

// handleListSnapshots returns stored snapshot records, newest first.
// An optional ?room= prefix filters by room name, case-insensitively.
//
// GET /api/v1/snapshots?room=stu
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListByRoomPrefix(r.Context(), r.URL.Query().Get("room"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": records,
		"count":     len(records),
	})
}

// captureRequest names the room to snapshot. The name is resolved
// fuzzily against rooms and zones.
type captureRequest struct {
	Room string `json:"room"`
}

// handleCaptureSnapshot captures the named room's current programming
// and persists it.
//
// POST /api/v1/snapshots
func (s *Server) handleCaptureSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if req.Room == "" {
		writeBadRequest(w, "room is required")
		return
	}

	rooms, err := s.inventory.RoomCandidates(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	room, err := match.Resolve(req.Room, rooms)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	snap, err := snapshot.Capture(ctx, s.cache, room.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.store.Save(ctx, snap); err != nil {
		writeDomainError(w, err)
		return
	}

	if s.keepPerRoom > 0 {
		pruned, err := s.store.Prune(ctx, snap.RoomID, s.keepPerRoom)
		if err != nil {
			s.logger.Warn("pruning old snapshots failed", "room", snap.RoomName, "error", err)
		} else if pruned > 0 {
			s.logger.Info("pruned old snapshots", "room", snap.RoomName, "pruned", pruned)
		}
	}

	if s.mirror != nil {
		s.mirror.SnapshotCaptured(snap.RoomID, snap.RoomName, snap.ID, len(snap.Devices))
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"snapshot": snap,
	})
}

// handleGetSnapshot returns one stored snapshot in full.
//
// GET /api/v1/snapshots/{id}
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot": snap,
	})
}

// handleDiffSnapshot compares a stored snapshot against the room's
// current programming.
//
// GET /api/v1/snapshots/{id}/diff
func (s *Server) handleDiffSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := s.store.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	current, err := snapshot.Capture(ctx, s.cache, snap.RoomID)
	if err != nil {
		// A room whose switches were all removed still diffs cleanly:
		// every snapshotted device shows up as removed.
		if errors.Is(err, snapshot.ErrNoSwitches) {
			current = &snapshot.RoomSnapshot{RoomID: snap.RoomID, RoomName: snap.RoomName}
		} else {
			writeDomainError(w, err)
			return
		}
	}

	report := snapshot.Diff(snap, current)

	writeJSON(w, http.StatusOK, map[string]any{
		"diff":  report,
		"empty": report.Empty(),
	})
}

// handleRestoreSnapshot writes a stored snapshot's programming back to
// the bridge.
//
// POST /api/v1/snapshots/{id}/restore
func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := s.store.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	restorer := snapshot.NewRestore(s.transport, s.cache)
	restorer.SetLogger(s.logger)

	result, err := restorer.Run(ctx, snap)
	if err != nil {
		// A mid-run write failure leaves earlier devices restored;
		// report the partial outcome alongside the error.
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":    err.Error(),
			"applied":  result.Applied,
			"warnings": result.Warnings,
		})
		return
	}

	if s.mirror != nil {
		s.mirror.SnapshotRestored(snap.RoomID, snap.ID, len(result.Applied), len(result.Warnings))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"applied":  result.Applied,
		"warnings": result.Warnings,
	})
}
