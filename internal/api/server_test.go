package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/huelogic/internal/bridge"
	"github.com/nerrad567/huelogic/internal/cache"
	"github.com/nerrad567/huelogic/internal/infrastructure/config"
	"github.com/nerrad567/huelogic/internal/infrastructure/logging"
	"github.com/nerrad567/huelogic/internal/inventory"
	"github.com/nerrad567/huelogic/internal/snapshot"
)

// fakeTransport backs the cache with an in-memory fleet and records
// every PUT it confirms.
type fakeTransport struct {
	resources map[string][]map[string]any
	puts      []string
}

func (f *fakeTransport) GetResource(_ context.Context, rtype, id string) (map[string]any, error) {
	for _, raw := range f.resources[rtype] {
		if bridge.ResourceID(raw) == id {
			return bridge.CopyResource(raw), nil
		}
	}
	return nil, bridge.ErrNotFound
}

func (f *fakeTransport) PutResource(_ context.Context, rtype, id string, _ map[string]any) error {
	f.puts = append(f.puts, rtype+"/"+id)
	return nil
}

func (f *fakeTransport) ListResources(_ context.Context, rtype string) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(f.resources[rtype]))
	for _, raw := range f.resources[rtype] {
		out = append(out, bridge.CopyResource(raw))
	}
	return out, nil
}

// fakeStore keeps snapshots in memory in insertion order.
type fakeStore struct {
	snaps []*snapshot.RoomSnapshot
}

func (f *fakeStore) Save(_ context.Context, snap *snapshot.RoomSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}
	f.snaps = append(f.snaps, snap)
	return nil
}

func (f *fakeStore) ListByRoomPrefix(_ context.Context, prefix string) ([]snapshot.Record, error) {
	var records []snapshot.Record
	for _, snap := range f.snaps {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(snap.RoomName), strings.ToLower(prefix)) {
			continue
		}
		records = append(records, snapshot.Record{
			ID:       snap.ID,
			RoomID:   snap.RoomID,
			RoomName: snap.RoomName,
			TakenAt:  snap.TakenAt,
			Devices:  len(snap.Devices),
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].TakenAt.After(records[j].TakenAt)
	})
	return records, nil
}

func (f *fakeStore) Load(_ context.Context, id string) (*snapshot.RoomSnapshot, error) {
	for _, snap := range f.snaps {
		if snap.ID == id {
			return snap, nil
		}
	}
	return nil, snapshot.ErrSnapshotNotFound
}

func (f *fakeStore) Latest(_ context.Context, roomID string) (*snapshot.RoomSnapshot, error) {
	for i := len(f.snaps) - 1; i >= 0; i-- {
		if f.snaps[i].RoomID == roomID {
			return f.snaps[i], nil
		}
	}
	return nil, snapshot.ErrSnapshotNotFound
}

func (f *fakeStore) Prune(context.Context, string, int) (int, error) {
	return 0, nil
}

func parse(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return m
}

func fleetFixture(t *testing.T) *fakeTransport {
	t.Helper()
	return &fakeTransport{resources: map[string][]map[string]any{
		bridge.RTypeDevice: {
			parse(t, `{
				"id": "dev-switch",
				"metadata": {"name": "Hall Switch"},
				"product_data": {"model_id": "RWL022"},
				"services": [{"rid": "btn-1", "rtype": "button"}]
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
						"on_short_release": {"recall_single_extended": {"actions": [
							{"action": {"recall": {"rid": "scene-read", "rtype": "scene"}}}
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
		bridge.RTypeScene: {
			parse(t, `{
				"id": "scene-read",
				"metadata": {"name": "Read"},
				"group": {"rid": "room-hall", "rtype": "room"}
			}`),
			parse(t, `{
				"id": "scene-relax",
				"metadata": {"name": "Relax"},
				"group": {"rid": "room-hall", "rtype": "room"}
			}`),
		},
	}}
}

func newTestServer(t *testing.T) (*Server, *fakeTransport, *fakeStore) {
	t.Helper()

	ft := fleetFixture(t)
	c := cache.New(ft, filepath.Join(t.TempDir(), "mirror.json"), 24*time.Hour)
	store := &fakeStore{}

	server, err := New(Deps{
		Config:    config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:    logging.Default(),
		Cache:     c,
		Inventory: inventory.New(c),
		Store:     store,
		Transport: ft,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return server, ft, store
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Deps{})
	if err == nil {
		t.Fatal("New() with empty deps should fail")
	}
}

func TestHandleHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestListSwitches(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/switches", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestGetSwitch_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/switches/no-such-device", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSwitchEvents(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/switches/dev-switch/events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Events []struct {
			Button int            `json:"button"`
			Codes  map[string]int `json:"codes"`
		} `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Events) != 1 {
		t.Fatalf("events = %+v, want one button", body.Events)
	}
	codes := body.Events[0].Codes
	if codes["press"] != 1000 || codes["short_release"] != 1002 {
		t.Errorf("codes = %v", codes)
	}
}

func TestProgramButton_PreviewDoesNotWrite(t *testing.T) {
	s, ft, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/switches/dev-switch/buttons/1", map[string]any{
		"kind":   "scene_cycle",
		"scenes": []string{"read", "relax"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["applied"] != false {
		t.Errorf("applied = %v, want false", body["applied"])
	}
	preview, _ := body["preview"].(string)
	if !strings.Contains(preview, "cycle through 2 scenes") {
		t.Errorf("preview = %q", preview)
	}
	if len(ft.puts) != 0 {
		t.Errorf("puts = %v, preview must not touch the bridge", ft.puts)
	}
}

func TestProgramButton_ConfirmWritesThrough(t *testing.T) {
	s, ft, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/switches/dev-switch/buttons/1", map[string]any{
		"kind":    "scene_cycle",
		"scenes":  []string{"Read", "Relax"},
		"confirm": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["applied"] != true {
		t.Errorf("applied = %v, want true", body["applied"])
	}
	if len(ft.puts) != 1 || ft.puts[0] != "behavior_instance/bi-1" {
		t.Errorf("puts = %v, want one behaviour write", ft.puts)
	}

	// The mirror was patched: the switch view now shows the cycle.
	rec = doRequest(t, s, http.MethodGet, "/api/v1/switches/dev-switch", nil)
	if !strings.Contains(rec.Body.String(), "scene_cycle") {
		t.Errorf("switch view after write = %s", rec.Body.String())
	}
}

func TestProgramButton_UnknownScene(t *testing.T) {
	s, ft, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/switches/dev-switch/buttons/1", map[string]any{
		"kind":    "single_scene",
		"scene":   "nonexistent",
		"confirm": true,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
	if len(ft.puts) != 0 {
		t.Errorf("puts = %v, failed resolution must not write", ft.puts)
	}
}

func TestProgramButton_UnknownButton(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/switches/dev-switch/buttons/9", map[string]any{
		"kind":      "dim",
		"direction": "dim_up",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	s, _, store := newTestServer(t)

	// Capture resolves the room name fuzzily.
	rec := doRequest(t, s, http.MethodPost, "/api/v1/snapshots", map[string]any{"room": "hal"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("capture status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(store.snaps) != 1 {
		t.Fatalf("store has %d snapshots, want 1", len(store.snaps))
	}
	snapID := store.snaps[0].ID

	// List.
	rec = doRequest(t, s, http.MethodGet, "/api/v1/snapshots?room=hal", nil)
	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("list count = %v, want 1", body["count"])
	}

	// Diff against an unchanged room is empty.
	rec = doRequest(t, s, http.MethodGet, "/api/v1/snapshots/"+snapID+"/diff", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("diff status = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["empty"] != true {
		t.Errorf("diff = %v, want empty", body)
	}

	// Restore merges back through the cache.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/snapshots/"+snapID+"/restore", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); len(body["applied"].([]any)) != 1 {
		t.Errorf("restore body = %v, want one applied device", body)
	}
}

func TestCaptureSnapshot_UnknownRoom(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/snapshots", map[string]any{"room": "greenhouse"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/snapshots/no-such-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
