package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/huelogic/internal/bridge"
)

// fakeTransport is an in-memory bridge with scriptable write outcomes.
type fakeTransport struct {
	resources map[string][]map[string]any // rtype -> list

	putErr  error
	puts    []string // "rtype/id" in call order
	listErr error
	reloads int
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
	return f.putErr
}

func (f *fakeTransport) ListResources(_ context.Context, rtype string) ([]map[string]any, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if rtype == bridge.RTypeDevice {
		f.reloads++
	}
	out := make([]map[string]any, 0, len(f.resources[rtype]))
	for _, raw := range f.resources[rtype] {
		out = append(out, bridge.CopyResource(raw))
	}
	return out, nil
}

func testTransport() *fakeTransport {
	return &fakeTransport{
		resources: map[string][]map[string]any{
			bridge.RTypeDevice: {
				{"id": "dev-1", "metadata": map[string]any{"name": "Hall Switch"}},
			},
			bridge.RTypeBehaviorInstance: {
				{
					"id":      "bi-1",
					"enabled": true,
					"configuration": map[string]any{
						"device":  map[string]any{"rid": "dev-1", "rtype": "device"},
						"button1": map[string]any{"on_long_press": map[string]any{"action": "all_off"}},
					},
				},
			},
			bridge.RTypeButton: {
				{
					"id":       "btn-1",
					"owner":    map[string]any{"rid": "dev-1", "rtype": "device"},
					"metadata": map[string]any{"control_id": float64(1)},
				},
				{
					"id":       "btn-other",
					"owner":    map[string]any{"rid": "dev-9", "rtype": "device"},
					"metadata": map[string]any{"control_id": float64(2)},
				},
			},
		},
	}
}

func newTestCache(t *testing.T, ft *fakeTransport) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror.json")
	return New(ft, path, 24*time.Hour)
}

func TestReload_PopulatesMirror(t *testing.T) {
	ft := testTransport()
	c := newTestCache(t, ft)
	ctx := context.Background()

	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	raw, err := c.Get(ctx, bridge.RTypeDevice, "dev-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if bridge.ResourceName(raw) != "Hall Switch" {
		t.Errorf("name = %q, want %q", bridge.ResourceName(raw), "Hall Switch")
	}

	if c.ReloadedAt().IsZero() {
		t.Error("ReloadedAt should be set after reload")
	}
}

func TestGet_ImplicitReloadWhenNeverLoaded(t *testing.T) {
	ft := testTransport()
	c := newTestCache(t, ft)

	// No explicit Reload: the first read must trigger one.
	if _, err := c.Get(context.Background(), bridge.RTypeDevice, "dev-1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ft.reloads != 1 {
		t.Errorf("reloads = %d, want 1", ft.reloads)
	}
}

func TestGet_ImplicitReloadWhenAged(t *testing.T) {
	ft := testTransport()
	c := newTestCache(t, ft)
	ctx := context.Background()

	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	// Age the mirror past the threshold.
	c.mu.Lock()
	c.reloadedAt = time.Now().Add(-25 * time.Hour)
	c.mu.Unlock()

	before := ft.reloads
	if _, err := c.Get(ctx, bridge.RTypeDevice, "dev-1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ft.reloads != before+1 {
		t.Errorf("reloads = %d, want %d (staleness should force reload)", ft.reloads, before+1)
	}
}

func TestGet_CopyIsolation(t *testing.T) {
	ft := testTransport()
	c := newTestCache(t, ft)
	ctx := context.Background()

	first, err := c.Get(ctx, bridge.RTypeDevice, "dev-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	first["metadata"].(map[string]any)["name"] = "Mutated"

	second, err := c.Get(ctx, bridge.RTypeDevice, "dev-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if bridge.ResourceName(second) != "Hall Switch" {
		t.Error("mutating a returned copy changed the mirror")
	}
}

func TestApply_SuccessPatchesMirror(t *testing.T) {
	ft := testTransport()
	c := newTestCache(t, ft)
	ctx := context.Background()

	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	payload := map[string]any{
		"configuration": map[string]any{
			"device":  map[string]any{"rid": "dev-1", "rtype": "device"},
			"button1": map[string]any{"on_short_release": map[string]any{"action": "dim_up"}},
		},
	}
	err := c.Apply(ctx, Mutation{
		RType:   bridge.RTypeBehaviorInstance,
		ID:      "bi-1",
		Name:    "Hall Switch",
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	// Mirror reflects exactly the submitted payload, with no re-read.
	raw, err := c.Get(ctx, bridge.RTypeBehaviorInstance, "bi-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	cfg := raw["configuration"].(map[string]any)
	b1 := cfg["button1"].(map[string]any)
	osr := b1["on_short_release"].(map[string]any)
	if osr["action"] != "dim_up" {
		t.Errorf("mirror not patched from payload: %+v", b1)
	}
	if raw["enabled"] != true {
		t.Error("untouched top-level field lost from mirror")
	}
	if len(ft.puts) != 1 || ft.puts[0] != "behavior_instance/bi-1" {
		t.Errorf("puts = %v, want one behaviour write", ft.puts)
	}
}

func TestApply_FailureLeavesMirrorUntouched(t *testing.T) {
	ft := testTransport()
	c := newTestCache(t, ft)
	ctx := context.Background()

	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	ft.putErr = &bridge.APIError{Status: 500, Descriptions: []string{"internal error"}}
	err := c.Apply(ctx, Mutation{
		RType:   bridge.RTypeBehaviorInstance,
		ID:      "bi-1",
		Name:    "Hall Switch",
		Payload: map[string]any{"configuration": map[string]any{"button1": map[string]any{}}},
	})
	if err == nil {
		t.Fatal("Apply() expected error")
	}

	// Error carries the entity name for context.
	if want := `"Hall Switch"`; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should contain %s", err.Error(), want)
	}

	// Mirror unchanged.
	raw, getErr := c.Get(ctx, bridge.RTypeBehaviorInstance, "bi-1")
	if getErr != nil {
		t.Fatalf("Get() error = %v", getErr)
	}
	cfg := raw["configuration"].(map[string]any)
	b1 := cfg["button1"].(map[string]any)
	if _, ok := b1["on_long_press"]; !ok {
		t.Error("mirror changed after failed write")
	}

	// Exactly one bridge call: failed writes are never retried.
	if len(ft.puts) != 1 {
		t.Errorf("puts = %d, want 1 (no silent retry)", len(ft.puts))
	}
}

func TestApply_UnconfirmedMarksStale(t *testing.T) {
	ft := testTransport()
	c := newTestCache(t, ft)
	ctx := context.Background()

	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	ft.putErr = fmt.Errorf("%w: behavior_instance/bi-1", bridge.ErrUnconfirmed)
	err := c.Apply(ctx, Mutation{
		RType:   bridge.RTypeBehaviorInstance,
		ID:      "bi-1",
		Name:    "Hall Switch",
		Payload: map[string]any{"configuration": map[string]any{}},
	})
	if !errors.Is(err, bridge.ErrUnconfirmed) {
		t.Fatalf("Apply() error = %v, want ErrUnconfirmed", err)
	}

	// The next read of the affected entity must reload first.
	ft.putErr = nil
	before := ft.reloads
	if _, err := c.Get(ctx, bridge.RTypeBehaviorInstance, "bi-1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ft.reloads != before+1 {
		t.Errorf("reloads = %d, want %d (stale mark should force reload)", ft.reloads, before+1)
	}

	// Reload cleared the mark; further reads are served from the mirror.
	before = ft.reloads
	if _, err := c.Get(ctx, bridge.RTypeBehaviorInstance, "bi-1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ft.reloads != before {
		t.Errorf("reloads = %d, want %d (mark should be cleared)", ft.reloads, before)
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	ft := testTransport()
	path := filepath.Join(t.TempDir(), "mirror.json")
	ctx := context.Background()

	c := New(ft, path, 24*time.Hour)
	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	reloadedAt := c.ReloadedAt()

	// A second cache over the same file starts from the persisted
	// mirror without touching the bridge.
	restored := New(ft, path, 24*time.Hour)
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !restored.ReloadedAt().Equal(reloadedAt) {
		t.Errorf("ReloadedAt = %v, want %v", restored.ReloadedAt(), reloadedAt)
	}

	before := ft.reloads
	raw, err := restored.Get(ctx, bridge.RTypeDevice, "dev-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if bridge.ResourceName(raw) != "Hall Switch" {
		t.Errorf("restored name = %q", bridge.ResourceName(raw))
	}
	if ft.reloads != before {
		t.Error("fresh persisted mirror should not trigger a reload")
	}
}

func TestButtonControls(t *testing.T) {
	ft := testTransport()
	c := newTestCache(t, ft)

	controls, err := c.ButtonControls(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("ButtonControls() error = %v", err)
	}
	if len(controls) != 1 {
		t.Fatalf("controls = %v, want one entry", controls)
	}
	if controls["btn-1"] != 1 {
		t.Errorf("controls[btn-1] = %d, want 1", controls["btn-1"])
	}
}

func TestGet_NotFound(t *testing.T) {
	ft := testTransport()
	c := newTestCache(t, ft)

	_, err := c.Get(context.Background(), bridge.RTypeDevice, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}
