package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/huelogic/internal/bridge"
	"github.com/nerrad567/huelogic/internal/button"
)

// handleListDevices returns every device the mirror knows, switches and
// otherwise.
//
// GET /api/v1/devices
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	raws, err := s.cache.List(r.Context(), bridge.RTypeDevice)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type deviceView struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Buttons int    `json:"buttons,omitempty"`
	}

	devices := make([]deviceView, 0, len(raws))
	for _, raw := range raws {
		devices = append(devices, deviceView{
			ID:      bridge.ResourceID(raw),
			Name:    bridge.ResourceName(raw),
			Buttons: len(bridge.ServiceRefs(raw, bridge.RTypeButton)),
		})
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Name < devices[j].Name
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleListSwitches returns all button-bearing devices with their
// decoded programming.
//
// GET /api/v1/switches
func (s *Server) handleListSwitches(w http.ResponseWriter, r *http.Request) {
	switches, err := s.inventory.Switches(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"switches": switches,
		"count":    len(switches),
	})
}

// handleGetSwitch returns one switch with its decoded programming and
// per-button descriptions.
//
// GET /api/v1/switches/{id}
func (s *Server) handleGetSwitch(w http.ResponseWriter, r *http.Request) {
	sw, err := s.inventory.Switch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	descriptions := make(map[int]string, len(sw.Buttons))
	for n, spec := range sw.Buttons {
		descriptions[n] = spec.Describe()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"switch":       sw,
		"descriptions": descriptions,
	})
}

// handleSwitchEvents returns the event codes each button on a switch
// emits, for wiring external automations to raw button events.
//
// GET /api/v1/switches/{id}/events
func (s *Server) handleSwitchEvents(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	sw, err := s.inventory.Switch(r.Context(), deviceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	controls, err := s.cache.ButtonControls(r.Context(), deviceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	indices := make([]int, 0, len(controls))
	for _, n := range controls {
		indices = append(indices, n)
	}
	sort.Ints(indices)

	type eventRow struct {
		Button int            `json:"button"`
		Codes  map[string]int `json:"codes"`
	}

	events := make([]eventRow, 0, len(indices))
	for _, n := range indices {
		events = append(events, eventRow{
			Button: n,
			Codes: map[string]int{
				"press":         int(button.NewEventCode(n, button.EventPress)),
				"hold":          int(button.NewEventCode(n, button.EventHold)),
				"short_release": int(button.NewEventCode(n, button.EventShortRelease)),
				"long_release":  int(button.NewEventCode(n, button.EventLongRelease)),
			},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"switch_id": sw.ID,
		"name":      sw.Name,
		"events":    events,
	})
}
