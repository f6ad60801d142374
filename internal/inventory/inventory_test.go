package inventory

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/huelogic/internal/bridge"
	"github.com/nerrad567/huelogic/internal/button"
	"github.com/nerrad567/huelogic/internal/cache"
)

// fakeTransport serves a small fleet: one dimmer switch with a legacy
// cycle program, one lamp, a room, a zone and two scenes.
type fakeTransport struct {
	resources map[string][]map[string]any
}

func (f *fakeTransport) GetResource(_ context.Context, rtype, id string) (map[string]any, error) {
	for _, raw := range f.resources[rtype] {
		if bridge.ResourceID(raw) == id {
			return bridge.CopyResource(raw), nil
		}
	}
	return nil, bridge.ErrNotFound
}

func (f *fakeTransport) PutResource(context.Context, string, string, map[string]any) error {
	return nil
}

func (f *fakeTransport) ListResources(_ context.Context, rtype string) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(f.resources[rtype]))
	for _, raw := range f.resources[rtype] {
		out = append(out, bridge.CopyResource(raw))
	}
	return out, nil
}

func parse(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return m
}

func newTestInventory(t *testing.T) *Inventory {
	t.Helper()

	ft := &fakeTransport{resources: map[string][]map[string]any{
		bridge.RTypeDevice: {
			parse(t, `{
				"id": "dev-switch",
				"metadata": {"name": "Hall Switch"},
				"product_data": {"model_id": "RWL022"},
				"services": [
					{"rid": "btn-1", "rtype": "button"},
					{"rid": "pow-1", "rtype": "device_power"},
					{"rid": "zig-1", "rtype": "zigbee_connectivity"}
				]
			}`),
			parse(t, `{
				"id": "dev-lamp",
				"metadata": {"name": "Hall Lamp"},
				"services": [{"rid": "light-1", "rtype": "light"}]
			}`),
		},
		bridge.RTypeButton: {
			parse(t, `{
				"id": "btn-1",
				"owner": {"rid": "dev-switch", "rtype": "device"},
				"metadata": {"control_id": 1}
			}`),
		},
		bridge.RTypeBehaviorInstance: {
			parse(t, `{
				"id": "bi-1",
				"configuration": {
					"device": {"rid": "dev-switch", "rtype": "device"},
					"button1": {
						"on_short_release": {"scene_cycle_extended": {"slots": [
							[{"action": {"recall": {"rid": "scene-read", "rtype": "scene"}}}],
							[{"action": {"recall": {"rid": "scene-relax", "rtype": "scene"}}}]
						]}}
					}
				}
			}`),
		},
		bridge.RTypeRoom: {
			parse(t, `{
				"id": "room-hall",
				"metadata": {"name": "Hall"},
				"children": [{"rid": "dev-switch", "rtype": "device"}]
			}`),
		},
		bridge.RTypeZone: {
			parse(t, `{
				"id": "zone-down",
				"metadata": {"name": "Downstairs"},
				"children": []
			}`),
		},
		bridge.RTypeScene: {
			parse(t, `{
				"id": "scene-read",
				"metadata": {"name": "Read"},
				"group": {"rid": "room-hall", "rtype": "room"}
			}`),
			parse(t, `{
				"id": "scene-relax",
				"metadata": {"name": "Relax"},
				"group": {"rid": "zone-down", "rtype": "zone"}
			}`),
		},
		bridge.RTypeDevicePower: {
			parse(t, `{
				"id": "pow-1",
				"power_state": {"battery_level": 73}
			}`),
		},
		bridge.RTypeZigbeeConnectivity: {
			parse(t, `{"id": "zig-1", "status": "connected"}`),
		},
	}}

	c := cache.New(ft, filepath.Join(t.TempDir(), "mirror.json"), 24*time.Hour)
	return New(c)
}

func TestSwitches(t *testing.T) {
	inv := newTestInventory(t)

	switches, err := inv.Switches(context.Background())
	if err != nil {
		t.Fatalf("Switches() error = %v", err)
	}
	if len(switches) != 1 {
		t.Fatalf("switches = %d, want 1 (lamp excluded)", len(switches))
	}

	sw := switches[0]
	if sw.Name != "Hall Switch" || sw.Class != "dimmer" {
		t.Errorf("switch = %q/%q, want Hall Switch/dimmer", sw.Name, sw.Class)
	}
	if sw.Room != "Hall" || sw.RoomID != "room-hall" {
		t.Errorf("Room = %q/%q, want Hall/room-hall", sw.Room, sw.RoomID)
	}
	if sw.Format != "legacy" {
		t.Errorf("Format = %q, want legacy", sw.Format)
	}
	if spec, ok := sw.Buttons[1]; !ok || spec.Kind != button.KindSceneCycle {
		t.Errorf("Buttons = %+v, want cycle on button 1", sw.Buttons)
	}
	if sw.Battery == nil || *sw.Battery != 73 {
		t.Errorf("Battery = %v, want 73", sw.Battery)
	}
	if sw.Connectivity != "connected" {
		t.Errorf("Connectivity = %q", sw.Connectivity)
	}
}

func TestRooms_UnionOfRoomsAndZones(t *testing.T) {
	inv := newTestInventory(t)

	rooms, err := inv.Rooms(context.Background())
	if err != nil {
		t.Fatalf("Rooms() error = %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("rooms = %+v, want room + zone", rooms)
	}

	kinds := map[string]string{}
	for _, r := range rooms {
		kinds[r.Name] = r.Kind
	}
	if kinds["Hall"] != "room" || kinds["Downstairs"] != "zone" {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestScenes_ReverseMapping(t *testing.T) {
	inv := newTestInventory(t)

	scenes, err := inv.Scenes(context.Background())
	if err != nil {
		t.Fatalf("Scenes() error = %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(scenes))
	}

	byName := map[string]Scene{}
	for _, s := range scenes {
		byName[s.Name] = s
	}

	read := byName["Read"]
	if read.Room != "Hall" {
		t.Errorf("Read room = %q, want Hall", read.Room)
	}
	if len(read.UsedBy) != 1 || read.UsedBy[0].SwitchName != "Hall Switch" || read.UsedBy[0].Button != 1 {
		t.Errorf("Read UsedBy = %+v", read.UsedBy)
	}

	relax := byName["Relax"]
	if relax.Room != "Downstairs" {
		t.Errorf("Relax room = %q, want Downstairs (zone groups resolve too)", relax.Room)
	}
}

func TestSceneCandidates_RoomScoped(t *testing.T) {
	inv := newTestInventory(t)

	all, err := inv.SceneCandidates(context.Background(), "")
	if err != nil {
		t.Fatalf("SceneCandidates() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all candidates = %d, want 2", len(all))
	}

	scoped, err := inv.SceneCandidates(context.Background(), "room-hall")
	if err != nil {
		t.Fatalf("SceneCandidates() error = %v", err)
	}
	if len(scoped) != 1 || scoped[0].Name != "Read" {
		t.Errorf("scoped candidates = %+v, want just Read", scoped)
	}
}

func TestSummary(t *testing.T) {
	inv := newTestInventory(t)

	summary, err := inv.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	want := map[string]int{
		"switches": 1, "lights": 1,
		"rooms": 1, "zones": 1, "scenes": 2, "behaviours": 1,
	}
	for k, v := range want {
		if summary[k] != v {
			t.Errorf("summary[%s] = %d, want %d", k, summary[k], v)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"RWL022", "dimmer"},
		{"RDM002", "dial"},
		{"ROM001", "button"},
		{"", "switch"},
		{"SML001", "switch"},
	}
	for _, tt := range tests {
		if got := classify(tt.model); got != tt.want {
			t.Errorf("classify(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}
