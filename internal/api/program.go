package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/huelogic/internal/bridge"
	"github.com/nerrad567/huelogic/internal/button"
	"github.com/nerrad567/huelogic/internal/cache"
)

// programRequest is the JSON body for programming a button. Scene
// references are names, resolved fuzzily against the switch's room.
type programRequest struct {
	Kind      string            `json:"kind"`
	Scenes    []string          `json:"scenes,omitempty"`
	Slots     []programSlot     `json:"slots,omitempty"`
	Scene     string            `json:"scene,omitempty"`
	Direction string            `json:"direction,omitempty"`
	LongPress *programLongPress `json:"long_press,omitempty"`

	// Confirm gates the write. A request without it resolves and
	// previews but changes nothing on the bridge.
	Confirm bool `json:"confirm"`
}

type programSlot struct {
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Scene  string `json:"scene"`
}

type programLongPress struct {
	Action string `json:"action,omitempty"`
	Scene  string `json:"scene,omitempty"`
}

// handleProgramButton resolves, previews and optionally applies a new
// programming for one button on a switch.
//
// POST /api/v1/switches/{id}/buttons/{button}
func (s *Server) handleProgramButton(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, err := strconv.Atoi(chi.URLParam(r, "button"))
	if err != nil || index < 1 {
		writeBadRequest(w, "button must be a positive integer")
		return
	}

	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	sw, err := s.inventory.Switch(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if sw.BehaviourID == "" {
		writeConflict(w, fmt.Sprintf("switch %q has no behaviour instance to program", sw.Name))
		return
	}

	controls, err := s.cache.ButtonControls(ctx, sw.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rid, ok := ridForIndex(controls, index)
	if !ok {
		writeBadRequest(w, fmt.Sprintf("switch %q has no button %d", sw.Name, index))
		return
	}

	// Scene names resolve within the switch's own room when it has one;
	// an unassigned switch searches the whole bridge.
	scenes, err := s.inventory.SceneCandidates(ctx, sw.RoomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	program, err := button.Build(buildRequest(req), scenes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !req.Confirm {
		writeJSON(w, http.StatusOK, map[string]any{
			"applied": false,
			"preview": program.Preview,
			"spec":    program.Spec,
		})
		return
	}

	raw, err := s.cache.Get(ctx, bridge.RTypeBehaviorInstance, sw.BehaviourID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	format, err := button.DetectFormat(raw)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	key := button.Key{Index: index}
	if format == button.FormatCurrent {
		key.RID = rid
	}
	encoded, err := button.Encode(raw, format, key, program.Spec)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	mutation := cache.Mutation{
		RType: bridge.RTypeBehaviorInstance,
		ID:    sw.BehaviourID,
		Name:  sw.Name,
		Payload: map[string]any{
			"configuration": encoded["configuration"],
		},
	}
	if err := s.cache.Apply(ctx, mutation); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.Info("button programmed",
		"switch", sw.Name,
		"button", index,
		"kind", req.Kind,
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"applied": true,
		"preview": program.Preview,
		"spec":    program.Spec,
	})
}

// buildRequest maps the wire request onto the builder's input.
func buildRequest(req programRequest) button.Request {
	out := button.Request{
		Kind:       button.Kind(req.Kind),
		SceneNames: req.Scenes,
		SceneName:  req.Scene,
		Direction:  button.DimDirection(req.Direction),
	}
	for _, slot := range req.Slots {
		out.Slots = append(out.Slots, button.SlotRequest{
			Hour:      slot.Hour,
			Minute:    slot.Minute,
			SceneName: slot.Scene,
		})
	}
	if req.LongPress != nil {
		out.LongPress = &button.LongPressRequest{
			Action:    req.LongPress.Action,
			SceneName: req.LongPress.Scene,
		}
	}
	return out
}

// ridForIndex finds the button resource id carrying the given control
// index.
func ridForIndex(controls map[string]int, index int) (string, bool) {
	for rid, n := range controls {
		if n == index {
			return rid, true
		}
	}
	return "", false
}
