package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/huelogic/internal/bridge"
	"github.com/nerrad567/huelogic/internal/button"
	"github.com/nerrad567/huelogic/internal/cache"
)

// Source is the read surface capture needs. The cache satisfies it;
// capture deliberately cannot reach the bridge directly.
type Source interface {
	Get(ctx context.Context, rtype, id string) (map[string]any, error)
	List(ctx context.Context, rtype string) ([]map[string]any, error)
	ButtonControls(ctx context.Context, deviceID string) (map[string]int, error)
}

// Capture builds a RoomSnapshot for the given room or zone from cached
// state only.
//
// Every child device carrying button services is included. Devices
// whose behaviour uses an unrecognised encoding are still recorded, but
// with no decoded programming - restore skips them, diff reports them
// by name only.
//
// Returns ErrNoSwitches when the room has no button-bearing devices.
func Capture(ctx context.Context, src Source, roomID string) (*RoomSnapshot, error) {
	room, err := src.Get(ctx, bridge.RTypeRoom, roomID)
	if isNotFound(err) {
		room, err = src.Get(ctx, bridge.RTypeZone, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading room %q: %w", roomID, err)
	}

	snap := &RoomSnapshot{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		RoomName: bridge.ResourceName(room),
		TakenAt:  time.Now().UTC(),
	}

	behaviours, err := behavioursByDevice(ctx, src)
	if err != nil {
		return nil, err
	}
	sceneNames, err := roomScenes(ctx, src, roomID, snap)
	if err != nil {
		return nil, err
	}

	for _, ref := range childDevices(room) {
		dev, err := src.Get(ctx, bridge.RTypeDevice, ref.RID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("loading device %q: %w", ref.RID, err)
		}
		if len(bridge.ServiceRefs(dev, bridge.RTypeButton)) == 0 {
			continue
		}

		ds := DeviceSnapshot{
			DeviceID: ref.RID,
			Name:     bridge.ResourceName(dev),
			Model:    modelID(dev),
		}

		if behaviour, ok := behaviours[ref.RID]; ok {
			ds.BehaviourID = bridge.ResourceID(behaviour)
			ds.Buttons = decodeButtons(ctx, src, ref.RID, behaviour, sceneNames)
		}
		ds.Health = deviceHealth(ctx, src, dev)

		snap.Devices = append(snap.Devices, ds)
	}

	if len(snap.Devices) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSwitches, snap.RoomName)
	}

	sort.Slice(snap.Devices, func(i, j int) bool {
		return snap.Devices[i].Name < snap.Devices[j].Name
	})
	return snap, nil
}

// behavioursByDevice indexes cached behaviour instances by the device
// they configure.
func behavioursByDevice(ctx context.Context, src Source) (map[string]map[string]any, error) {
	list, err := src.List(ctx, bridge.RTypeBehaviorInstance)
	if err != nil {
		return nil, fmt.Errorf("listing behaviours: %w", err)
	}
	byDevice := make(map[string]map[string]any, len(list))
	for _, raw := range list {
		cfg, ok := raw["configuration"].(map[string]any)
		if !ok {
			continue
		}
		dev, ok := cfg["device"].(map[string]any)
		if !ok {
			continue
		}
		if rid, ok := dev["rid"].(string); ok && rid != "" {
			byDevice[rid] = raw
		}
	}
	return byDevice, nil
}

// roomScenes records the room's scenes on the snapshot and returns a
// name lookup covering every cached scene, for annotating decoded
// programming.
func roomScenes(ctx context.Context, src Source, roomID string, snap *RoomSnapshot) (map[string]string, error) {
	scenes, err := src.List(ctx, bridge.RTypeScene)
	if err != nil {
		return nil, fmt.Errorf("listing scenes: %w", err)
	}
	names := make(map[string]string, len(scenes))
	for _, raw := range scenes {
		id := bridge.ResourceID(raw)
		names[id] = bridge.ResourceName(raw)
		if group, ok := raw["group"].(map[string]any); ok {
			if rid, _ := group["rid"].(string); rid == roomID {
				snap.Scenes = append(snap.Scenes, SceneInfo{ID: id, Name: names[id]})
			}
		}
	}
	sort.Slice(snap.Scenes, func(i, j int) bool {
		return snap.Scenes[i].Name < snap.Scenes[j].Name
	})
	return names, nil
}

// decodeButtons decodes a behaviour into canonical form. An
// unrecognised format empties the device's programming rather than
// failing the whole capture.
func decodeButtons(ctx context.Context, src Source, deviceID string, behaviour map[string]any, sceneNames map[string]string) map[int]button.ActionSpec {
	format, err := button.DetectFormat(behaviour)
	if err != nil {
		return nil
	}

	controls, err := src.ButtonControls(ctx, deviceID)
	if err != nil {
		return nil
	}
	idx := func(rid string) (int, bool) {
		n, ok := controls[rid]
		return n, ok
	}

	specs, err := button.Decode(behaviour, format, idx)
	if err != nil || len(specs) == 0 {
		return nil
	}
	for n, spec := range specs {
		specs[n] = annotateNames(spec, sceneNames)
	}
	return specs
}

// annotateNames fills advisory scene names into a decoded spec so
// stored snapshots remain readable even after scenes are renamed or
// deleted.
func annotateNames(spec button.ActionSpec, names map[string]string) button.ActionSpec {
	for i := range spec.Scenes {
		spec.Scenes[i].Name = names[spec.Scenes[i].ID]
	}
	for i := range spec.Slots {
		spec.Slots[i].Scene.Name = names[spec.Slots[i].Scene.ID]
	}
	if spec.Scene != nil {
		s := *spec.Scene
		s.Name = names[s.ID]
		spec.Scene = &s
	}
	if spec.LongPress != nil && spec.LongPress.Scene != nil {
		lp := *spec.LongPress
		s := *lp.Scene
		s.Name = names[s.ID]
		lp.Scene = &s
		spec.LongPress = &lp
	}
	return spec
}

// deviceHealth gathers the device's battery and connectivity readings.
// These are informational only; diff's denylist keeps them out of
// comparisons.
func deviceHealth(ctx context.Context, src Source, dev map[string]any) map[string]any {
	health := make(map[string]any)

	for _, ref := range bridge.ServiceRefs(dev, bridge.RTypeDevicePower) {
		raw, err := src.Get(ctx, bridge.RTypeDevicePower, ref.RID)
		if err != nil {
			continue
		}
		if ps, ok := raw["power_state"].(map[string]any); ok {
			if v, ok := ps["battery_level"]; ok {
				health["battery_level"] = v
			}
			if v, ok := ps["battery_state"]; ok {
				health["battery_state"] = v
			}
		}
	}
	for _, ref := range bridge.ServiceRefs(dev, bridge.RTypeZigbeeConnectivity) {
		raw, err := src.Get(ctx, bridge.RTypeZigbeeConnectivity, ref.RID)
		if err != nil {
			continue
		}
		if v, ok := raw["status"]; ok {
			health["connectivity"] = v
		}
	}

	if len(health) == 0 {
		return nil
	}
	return health
}

// childDevices returns the room's device children. Rooms list devices
// directly; zones list lights, whose owning devices are not resolvable
// without a bridge walk, so zone snapshots cover explicitly-added
// device children only.
func childDevices(room map[string]any) []bridge.ResourceRef {
	children, ok := room["children"].([]any)
	if !ok {
		return nil
	}
	refs := make([]bridge.ResourceRef, 0, len(children))
	for _, c := range children {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		rid, _ := m["rid"].(string)
		rtype, _ := m["rtype"].(string)
		if rtype == bridge.RTypeDevice && rid != "" {
			refs = append(refs, bridge.ResourceRef{RID: rid, RType: rtype})
		}
	}
	return refs
}

// isNotFound matches the not-found sentinels of both the cache and the
// raw transport, since Source may be backed by either.
func isNotFound(err error) bool {
	return errors.Is(err, cache.ErrNotFound) || errors.Is(err, bridge.ErrNotFound)
}

// modelID returns product_data.model_id, or "".
func modelID(dev map[string]any) string {
	pd, ok := dev["product_data"].(map[string]any)
	if !ok {
		return ""
	}
	model, _ := pd["model_id"].(string)
	return model
}
